package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignup                 ActivityEventType = "auth.signup"
	ActivityEventLoginSuccess           ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure           ActivityEventType = "auth.login.failure"
	ActivityEventEmailValidated         ActivityEventType = "auth.email.validated"
	ActivityEventPasswordResetRequested ActivityEventType = "auth.password.reset.requested"
	ActivityEventPasswordResetSuccess   ActivityEventType = "auth.password.reset"
	ActivityEventImpersonationIssued    ActivityEventType = "auth.impersonation.issued"
	ActivityEventImpersonationSuccess   ActivityEventType = "auth.impersonation.success"
	ActivityEventImpersonationFailure   ActivityEventType = "auth.impersonation.failure"
	ActivityEventSecretRotated          ActivityEventType = "auth.directory.secret.rotated"
)

// ActorRef identifies who triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType   ActivityEventType
	Actor       ActorRef
	DirectoryID uuid.UUID
	PartnerID   string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
