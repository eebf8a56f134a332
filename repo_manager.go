package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Directories() Directories
	AuthPartners() AuthPartners
}

type mngr struct {
	db          *bun.DB
	directories Directories
	partners    AuthPartners
}

// RepositoryManagerOption configures the manager's repositories.
type RepositoryManagerOption func(*mngr)

// WithManagerActivitySink wires an activity sink into the repositories
// that emit audit events.
func WithManagerActivitySink(sink ActivitySink) RepositoryManagerOption {
	return func(m *mngr) {
		m.directories = NewDirectoriesRepository(m.db, WithDirectoriesActivitySink(sink))
	}
}

func NewRepositoryManager(db *bun.DB, opts ...RepositoryManagerOption) RepositoryManager {
	m := &mngr{
		db:          db,
		directories: NewDirectoriesRepository(db),
		partners:    NewAuthPartnersRepository(db),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m mngr) Validate() error {
	if m.directories == nil {
		return errors.New("repository directories should be initialized")
	}

	if m.partners == nil {
		return errors.New("repository partners should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Directories() Directories {
	return m.directories
}

func (m mngr) AuthPartners() AuthPartners {
	return m.partners
}
