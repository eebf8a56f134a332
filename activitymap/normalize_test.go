package activitymap_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	auth "github.com/goliatone/go-partner-auth"
	"github.com/goliatone/go-partner-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	directoryID := uuid.New()
	event := auth.ActivityEvent{
		EventType:   auth.ActivityEventLoginSuccess,
		Actor:       auth.ActorRef{ID: "partner-100", Type: "partner"},
		DirectoryID: directoryID,
		PartnerID:   "partner-100",
		Metadata: map[string]any{
			"ticket": "SEC-204",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "partner-100" {
		t.Fatalf("expected actor_id partner-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != "partner" {
		t.Fatalf("expected object_type partner, got %q", out.ObjectType)
	}
	if out.ObjectID != "partner-100" {
		t.Fatalf("expected object_id partner-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["ticket"] != "SEC-204" {
		t.Fatalf("expected metadata ticket SEC-204, got %#v", out.Metadata["ticket"])
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "partner" {
		t.Fatalf("expected metadata actor_type partner, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyDirectory] != directoryID.String() {
		t.Fatalf("expected metadata directory_id %q, got %#v", directoryID, out.Metadata[activitymap.MetadataKeyDirectory])
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventSignup,
	})

	if out.ActorID != "system" {
		t.Fatalf("expected actor fallback system, got %q", out.ActorID)
	}
	if out.ObjectID != "" {
		t.Fatalf("expected empty object_id, got %q", out.ObjectID)
	}
	if out.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to default to now")
	}
}

func TestNormalizeOptions(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventImpersonationIssued,
		Actor:     auth.ActorRef{ID: "op-1", Type: "operator"},
		PartnerID: "partner-7",
	}

	out := activitymap.Normalize(event,
		activitymap.WithDefaultChannel("audit"),
		activitymap.WithDefaultObjectType("credential"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			return "custom-" + e.PartnerID
		}),
	)

	if out.Channel != "audit" {
		t.Fatalf("expected channel audit, got %q", out.Channel)
	}
	if out.ObjectType != "credential" {
		t.Fatalf("expected object_type credential, got %q", out.ObjectType)
	}
	if out.ObjectID != "custom-partner-7" {
		t.Fatalf("expected resolver object id, got %q", out.ObjectID)
	}
}
