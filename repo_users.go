package provision

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun-backed canonical store. Queries are always scoped by
// domain plus identifier or username; results keep the store's stable
// ordering so flows that pick "the first match" stay deterministic.
type Users struct {
	db   *bun.DB
	repo repository.Repository[*User]
}

var _ UserStore = (*Users)(nil)

// NewUsersRepository creates the canonical user repository.
func NewUsersRepository(db *bun.DB) *Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &Users{
		db:   db,
		repo: repo,
	}
}

// FindByID returns the user with the given identifier.
func (a *Users) FindByID(ctx context.Context, id string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, userNotFound(id)
		}
		return nil, err
	}
	return record, nil
}

// FindByDomain returns every user in the domain, oldest first.
func (a *Users) FindByDomain(ctx context.Context, domain string) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.domain = ?", domain).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindByDomainAndUsername returns the user bound to username in the domain.
func (a *Users) FindByDomainAndUsername(ctx context.Context, domain, username string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.domain = ?", domain).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, userNotFound(username)
		}
		return nil, err
	}
	return record, nil
}

// FindByDomainAndEmail returns all users in the domain sharing the email,
// in insertion order. Callers pick from this order; it is never re-sorted.
func (a *Users) FindByDomainAndEmail(ctx context.Context, domain, email string) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.domain = ?", domain).
		Where("?TableAlias.email = ?", email).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Create persists a new canonical record.
func (a *Users) Create(ctx context.Context, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.repo.Create(ctx, user)
}

// CreateTx persists a new canonical record inside tx.
func (a *Users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.repo.CreateTx(ctx, tx, user)
}

// Update persists changes to an existing canonical record by id.
func (a *Users) Update(ctx context.Context, user *User) (*User, error) {
	return a.repo.Update(ctx, user, repository.UpdateByID(user.ID.String()))
}

// UpdateTx persists changes to an existing canonical record inside tx.
func (a *Users) UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.repo.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
}

// DeleteByID removes the canonical record. The model uses soft deletes,
// so the row is tombstoned rather than purged.
func (a *Users) DeleteByID(ctx context.Context, id string) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return userNotFound(id)
	}
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Source == "" && record.Domain != "" {
		record.Source = DefaultSource(record.Domain)
	}
}
