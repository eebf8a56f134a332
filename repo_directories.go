package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Directories exposes auth directory storage and secret rotation. It
// implements DirectoryStore.
type Directories interface {
	repository.Repository[*Directory]

	DirectoryByID(ctx context.Context, id uuid.UUID) (*Directory, error)
	CreateDirectory(ctx context.Context, record *Directory) (*Directory, error)
	// RegenerateSecretKey rotates the token signing secret, revoking every
	// outstanding action token in the directory at once.
	RegenerateSecretKey(ctx context.Context, id uuid.UUID) (*Directory, error)
	// RegenerateCookieSecretKey rotates the cookie signing secret,
	// invalidating every outstanding session cookie in the directory.
	RegenerateCookieSecretKey(ctx context.Context, id uuid.UUID) (*Directory, error)
}

type directories struct {
	repository.Repository[*Directory]
	db   *bun.DB
	sink ActivitySink
}

var (
	_ Directories                       = (*directories)(nil)
	_ DirectoryStore                    = (*directories)(nil)
	_ repository.Repository[*Directory] = (*directories)(nil)
)

// DirectoriesOption configures the directories repository.
type DirectoriesOption func(*directories)

// WithDirectoriesActivitySink audits secret rotations.
func WithDirectoriesActivitySink(sink ActivitySink) DirectoriesOption {
	return func(d *directories) {
		d.sink = normalizeActivitySink(sink)
	}
}

// NewDirectoriesRepository creates a bun-backed Directories repository.
func NewDirectoriesRepository(db *bun.DB, opts ...DirectoriesOption) Directories {
	repo := repository.NewRepository[*Directory](db, repository.ModelHandlers[*Directory]{
		NewRecord: func() *Directory { return &Directory{} },
		GetID: func(d *Directory) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *Directory, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	repoDirs := &directories{
		Repository: repo,
		db:         db,
		sink:       noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoDirs)
		}
	}

	return repoDirs
}

func (d *directories) DirectoryByID(ctx context.Context, id uuid.UUID) (*Directory, error) {
	record := &Directory{}
	err := d.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (d *directories) CreateDirectory(ctx context.Context, record *Directory) (*Directory, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.EnsureDefaults()

	if record.SecretKey == "" {
		record.SecretKey = GenerateSecretKey()
	}

	if record.CookieSecretKey == "" {
		record.CookieSecretKey = GenerateSecretKey()
	}

	return d.Repository.Create(ctx, record)
}

func (d *directories) RegenerateSecretKey(ctx context.Context, id uuid.UUID) (*Directory, error) {
	return d.rotateSecret(ctx, id, "token", func(record *Directory) {
		record.SecretKey = GenerateSecretKey()
	})
}

func (d *directories) RegenerateCookieSecretKey(ctx context.Context, id uuid.UUID) (*Directory, error) {
	return d.rotateSecret(ctx, id, "cookie", func(record *Directory) {
		record.CookieSecretKey = GenerateSecretKey()
	})
}

func (d *directories) rotateSecret(ctx context.Context, id uuid.UUID, kind string, rotate func(*Directory)) (*Directory, error) {
	record, err := d.DirectoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rotate(record)

	record, err = d.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, err
	}

	d.recordRotation(ctx, record, kind)

	return record, nil
}

func (d *directories) recordRotation(ctx context.Context, record *Directory, kind string) {
	_ = normalizeActivitySink(d.sink).Record(ctx, ActivityEvent{
		EventType:   ActivityEventSecretRotated,
		Actor:       ActorRef{Type: "system"},
		DirectoryID: record.ID,
		Metadata: map[string]any{
			"secret": kind,
		},
		OccurredAt: time.Now(),
	})
}
