package auth_test

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-partner-auth"
)

// memoryPartners is an in-memory PartnerStore. Lookups return copies so
// callers observe persisted state, not shared pointers.
type memoryPartners struct {
	mu      sync.Mutex
	records map[uuid.UUID]*auth.AuthPartner
}

func newMemoryPartners() *memoryPartners {
	return &memoryPartners{
		records: map[uuid.UUID]*auth.AuthPartner{},
	}
}

func clonePartner(p *auth.AuthPartner) *auth.AuthPartner {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (m *memoryPartners) PartnerByID(_ context.Context, id uuid.UUID) (*auth.AuthPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record, ok := m.records[id]; ok {
		return clonePartner(record), nil
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memoryPartners) PartnerByLogin(_ context.Context, directoryID uuid.UUID, login string) (*auth.AuthPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.DirectoryID == directoryID && record.Login == auth.NormalizeLogin(login) {
			return clonePartner(record), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memoryPartners) PartnerByIdentity(_ context.Context, directoryID, partnerID uuid.UUID) (*auth.AuthPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.DirectoryID == directoryID && record.PartnerID == partnerID {
			return clonePartner(record), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memoryPartners) CreatePartner(_ context.Context, partner *auth.AuthPartner) (*auth.AuthPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.DirectoryID == partner.DirectoryID && record.Login == partner.Login {
			return nil, goerrors.New("login already taken", goerrors.CategoryConflict)
		}
	}

	if partner.ID == uuid.Nil {
		partner.ID = uuid.New()
	}

	now := time.Now()
	partner.CreatedAt = &now

	m.records[partner.ID] = clonePartner(partner)
	return clonePartner(partner), nil
}

func (m *memoryPartners) UpdatePartner(_ context.Context, partner *auth.AuthPartner) (*auth.AuthPartner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[partner.ID]; !ok {
		return nil, repository.NewRecordNotFound()
	}

	m.records[partner.ID] = clonePartner(partner)
	return clonePartner(partner), nil
}

func (m *memoryPartners) WithinTx(ctx context.Context, fn func(ctx context.Context, store auth.PartnerStore) error) error {
	return fn(ctx, m)
}

// memoryDirectories is an in-memory DirectoryStore.
type memoryDirectories struct {
	mu      sync.Mutex
	records map[uuid.UUID]*auth.Directory
}

func newMemoryDirectories(dirs ...*auth.Directory) *memoryDirectories {
	m := &memoryDirectories{
		records: map[uuid.UUID]*auth.Directory{},
	}
	for _, d := range dirs {
		m.records[d.ID] = d
	}
	return m
}

func (m *memoryDirectories) DirectoryByID(_ context.Context, id uuid.UUID) (*auth.Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record, ok := m.records[id]; ok {
		return record, nil
	}
	return nil, repository.NewRecordNotFound()
}

// recordingMailer captures outgoing messages.
type recordingMailer struct {
	mu       sync.Mutex
	messages []auth.MailMessage
}

func (m *recordingMailer) Send(_ context.Context, msg auth.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []auth.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auth.MailMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *recordingMailer) waitForMessages(n int, timeout time.Duration) []auth.MailMessage {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msgs := m.sent(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.sent()
}

// captureSink records activity events.
type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestDirectory() *auth.Directory {
	dir := &auth.Directory{
		ID:   uuid.New(),
		Name: "acme",
		Templates: map[auth.TemplateKind]string{
			auth.TemplateResetPassword: "mail_reset_password",
			auth.TemplateSetPassword:   "mail_set_password",
			auth.TemplateValidateEmail: "mail_validate_email",
		},
	}
	dir.EnsureDefaults()
	return dir
}
