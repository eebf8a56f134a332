// Package activityprom exports auth activity events as Prometheus
// counters.
package activityprom

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	auth "github.com/goliatone/go-partner-auth"
)

// Sink implements auth.ActivitySink backed by a Prometheus counter
// vector labeled by event type and directory.
type Sink struct {
	events *prometheus.CounterVec
}

// Option customizes the sink.
type Option func(*Sink)

// WithCounterVec overrides the counter vector, mostly for tests that
// need their own registry.
func WithCounterVec(vec *prometheus.CounterVec) Option {
	return func(s *Sink) {
		if vec != nil {
			s.events = vec
		}
	}
}

// New creates a Sink and registers its collectors with registerer. Pass
// prometheus.DefaultRegisterer for the default registry.
func New(registerer prometheus.Registerer, opts ...Option) (*Sink, error) {
	s := &Sink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partner_auth_events_total",
				Help: "Total number of partner authentication events.",
			},
			[]string{"event", "directory"},
		),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if registerer != nil {
		if err := registerer.Register(s.events); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				s.events = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				return nil, err
			}
		}
	}

	return s, nil
}

// Record implements auth.ActivitySink.
func (s *Sink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.events.WithLabelValues(string(event.EventType), event.DirectoryID.String()).Inc()
	return nil
}

var _ auth.ActivitySink = (*Sink)(nil)
