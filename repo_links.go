package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityLinks is the store for external identity links. Lookups by
// subject back the idempotent registration path; the unique index on the
// subject column is the final arbiter for concurrent first logins.
type IdentityLinks interface {
	repository.Repository[*IdentityLink]

	GetBySubject(ctx context.Context, subject string) (*IdentityLink, error)
	GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*IdentityLink, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*IdentityLink, error)
	ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*IdentityLink, error)
	Create(ctx context.Context, record *IdentityLink, criteria ...repository.InsertCriteria) (*IdentityLink, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *IdentityLink, criteria ...repository.InsertCriteria) (*IdentityLink, error)
	Unlink(ctx context.Context, userID uuid.UUID, subject string) error
	UnlinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, subject string) error
}

type identityLinks struct {
	repository.Repository[*IdentityLink]
	db *bun.DB
}

var (
	_ IdentityLinks                        = (*identityLinks)(nil)
	_ repository.Repository[*IdentityLink] = (*identityLinks)(nil)
)

func NewIdentityLinksRepository(db *bun.DB) IdentityLinks {
	repo := repository.NewRepository[*IdentityLink](db, repository.ModelHandlers[*IdentityLink]{
		NewRecord: func() *IdentityLink { return &IdentityLink{} },
		GetID: func(l *IdentityLink) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *IdentityLink, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
		GetIdentifier: func() string {
			return "subject"
		},
	})

	return &identityLinks{
		Repository: repo,
		db:         db,
	}
}

func (r *identityLinks) GetBySubject(ctx context.Context, subject string) (*IdentityLink, error) {
	return r.GetBySubjectTx(ctx, r.db, subject)
}

func (r *identityLinks) GetBySubjectTx(ctx context.Context, tx bun.IDB, subject string) (*IdentityLink, error) {
	record := &IdentityLink{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.subject = ?", subject).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"subject": subject,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *identityLinks) ListByUser(ctx context.Context, userID uuid.UUID) ([]*IdentityLink, error) {
	return r.ListByUserTx(ctx, r.db, userID)
}

func (r *identityLinks) ListByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*IdentityLink, error) {
	var records []*IdentityLink
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return []*IdentityLink{}, nil
		}
		return nil, err
	}

	return records, nil
}

func (r *identityLinks) Create(ctx context.Context, record *IdentityLink, criteria ...repository.InsertCriteria) (*IdentityLink, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *identityLinks) CreateTx(ctx context.Context, tx bun.IDB, record *IdentityLink, criteria ...repository.InsertCriteria) (*IdentityLink, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

// Unlink removes one link by explicit user action. The owning user record
// is never touched.
func (r *identityLinks) Unlink(ctx context.Context, userID uuid.UUID, subject string) error {
	return r.UnlinkTx(ctx, r.db, userID, subject)
}

func (r *identityLinks) UnlinkTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, subject string) error {
	res, err := tx.NewDelete().
		Model((*IdentityLink)(nil)).
		Where("user_id = ? AND subject = ?", userID, subject).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"user_id": userID.String(),
				"subject": subject,
			})
	}

	return nil
}
