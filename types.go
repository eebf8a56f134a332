package auth

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Logger is the minimal logging surface used across the package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// PartnerStore is the storage surface the authentication service needs.
// The bun-backed AuthPartners repository implements it; tests use an
// in-memory fake.
type PartnerStore interface {
	PartnerByID(ctx context.Context, id uuid.UUID) (*AuthPartner, error)
	PartnerByLogin(ctx context.Context, directoryID uuid.UUID, login string) (*AuthPartner, error)
	// PartnerByIdentity resolves the credential record linked to an
	// external identity, as referenced by session cookies.
	PartnerByIdentity(ctx context.Context, directoryID, partnerID uuid.UUID) (*AuthPartner, error)
	CreatePartner(ctx context.Context, partner *AuthPartner) (*AuthPartner, error)
	UpdatePartner(ctx context.Context, partner *AuthPartner) (*AuthPartner, error)
	// WithinTx runs fn against a transaction-bound store. Token
	// verification and the salt-field mutation that invalidates the token
	// must share one transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, store PartnerStore) error) error
}

// DirectoryStore resolves directories for operations that only hold a
// partner record.
type DirectoryStore interface {
	DirectoryByID(ctx context.Context, id uuid.UUID) (*Directory, error)
}

// PartnerResolver looks up the partner a token names. VerifyToken uses it
// to derive key salts from current partner state.
type PartnerResolver func(ctx context.Context, id uuid.UUID) (*AuthPartner, error)

// ParseUUID parses a string identifier into a uuid.UUID with a
// structured validation error on failure.
func ParseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid uuid")
	}
	return id, nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
