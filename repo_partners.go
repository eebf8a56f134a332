package auth

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthPartners exposes partner credential storage. It extends the generic
// repository with the directory-scoped lookups the authentication flows
// need, and implements PartnerStore.
type AuthPartners interface {
	repository.Repository[*AuthPartner]

	PartnerByID(ctx context.Context, id uuid.UUID) (*AuthPartner, error)
	PartnerByLogin(ctx context.Context, directoryID uuid.UUID, login string) (*AuthPartner, error)
	PartnerByIdentity(ctx context.Context, directoryID, partnerID uuid.UUID) (*AuthPartner, error)
	CreatePartner(ctx context.Context, partner *AuthPartner) (*AuthPartner, error)
	UpdatePartner(ctx context.Context, partner *AuthPartner) (*AuthPartner, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context, store PartnerStore) error) error
}

type authPartners struct {
	repository.Repository[*AuthPartner]
	db   *bun.DB
	conn bun.IDB
}

var (
	_ AuthPartners                        = (*authPartners)(nil)
	_ PartnerStore                        = (*authPartners)(nil)
	_ repository.Repository[*AuthPartner] = (*authPartners)(nil)
)

// NewAuthPartnersRepository creates a bun-backed AuthPartners repository.
func NewAuthPartnersRepository(db *bun.DB) AuthPartners {
	repo := repository.NewRepository[*AuthPartner](db, repository.ModelHandlers[*AuthPartner]{
		NewRecord: func() *AuthPartner { return &AuthPartner{} },
		GetID: func(p *AuthPartner) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *AuthPartner, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "login"
		},
	})

	return &authPartners{
		Repository: repo,
		db:         db,
		conn:       db,
	}
}

func (a *authPartners) PartnerByID(ctx context.Context, id uuid.UUID) (*AuthPartner, error) {
	record := &AuthPartner{}
	err := a.conn.NewSelect().
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

func (a *authPartners) PartnerByLogin(ctx context.Context, directoryID uuid.UUID, login string) (*AuthPartner, error) {
	record := &AuthPartner{}
	err := a.conn.NewSelect().
		Model(record).
		Where("?TableAlias.directory_id = ?", directoryID).
		Where("?TableAlias.login = ?", NormalizeLogin(login)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"directory_id": directoryID.String(),
					"login":        login,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *authPartners) PartnerByIdentity(ctx context.Context, directoryID, partnerID uuid.UUID) (*AuthPartner, error) {
	record := &AuthPartner{}
	err := a.conn.NewSelect().
		Model(record).
		Where("?TableAlias.directory_id = ?", directoryID).
		Where("?TableAlias.partner_id = ?", partnerID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"directory_id": directoryID.String(),
					"partner_id":   partnerID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *authPartners) CreatePartner(ctx context.Context, partner *AuthPartner) (*AuthPartner, error) {
	preparePartnerDefaults(partner)
	return a.Repository.CreateTx(ctx, a.conn, partner)
}

func (a *authPartners) UpdatePartner(ctx context.Context, partner *AuthPartner) (*AuthPartner, error) {
	return a.Repository.UpdateTx(ctx, a.conn, partner, repository.UpdateByID(partner.ID.String()))
}

// WithinTx runs fn against a transaction-bound copy of the repository.
// Nested calls reuse the ambient transaction.
func (a *authPartners) WithinTx(ctx context.Context, fn func(ctx context.Context, store PartnerStore) error) error {
	if a.db == nil {
		return fn(ctx, a)
	}

	return a.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		scoped := &authPartners{
			Repository: a.Repository,
			conn:       tx,
		}
		return fn(ctx, scoped)
	})
}

func preparePartnerDefaults(record *AuthPartner) {
	if record == nil {
		return
	}

	record.Login = NormalizeLogin(record.Login)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
