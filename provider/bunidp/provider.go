package bunidp

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-provision"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const defaultBcryptCost = 14

// IdentityModel is the bun model for stored identities. Username is
// unique within a source; that constraint is what surfaces duplicate
// identity errors to the synchronizer.
type IdentityModel struct {
	bun.BaseModel `bun:"table:identities,alias:idp"`

	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	Source          string         `bun:"source,notnull"`
	Username        string         `bun:"username,notnull"`
	CredentialsHash string         `bun:"credentials_hash"`
	AdditionalInfo  map[string]any `bun:"additional_info,type:jsonb"`
	CreatedAt       time.Time      `bun:"created_at,default:current_timestamp"`
	UpdatedAt       time.Time      `bun:"updated_at,default:current_timestamp"`
}

// Provider implements provision.UserProvider on a bun database.
type Provider struct {
	db     *bun.DB
	source string
	cost   int
}

var _ provision.UserProvider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithBcryptCost overrides the credential hashing cost.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.cost = cost
		}
	}
}

// New creates a provider scoped to one source key.
func New(db *bun.DB, source string, opts ...Option) *Provider {
	p := &Provider{
		db:     db,
		source: source,
		cost:   defaultBcryptCost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Source returns the source key this provider is registered under.
func (p *Provider) Source() string {
	return p.source
}

// FindByUsername looks the username up within the provider's source.
// The credential hash never leaves the store.
func (p *Provider) FindByUsername(ctx context.Context, username string) (provision.Lookup, error) {
	model := &IdentityModel{}
	err := p.db.NewSelect().
		Model(model).
		Where("?TableAlias.source = ?", p.source).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return provision.AbsentIdentity(), nil
		}
		return provision.Lookup{}, err
	}
	return provision.FoundIdentity(p.toIdentity(model)), nil
}

// Create stores a new identity, hashing its credentials at rest.
func (p *Provider) Create(ctx context.Context, identity *provision.ExternalIdentity) (*provision.ExternalIdentity, error) {
	existing, err := p.FindByUsername(ctx, identity.Username)
	if err != nil {
		return nil, err
	}
	if existing.Found {
		return nil, provision.ErrDuplicateIdentity.Clone().WithMetadata(map[string]any{
			"username": identity.Username,
			"source":   p.source,
		})
	}

	hash, err := p.hashCredentials(identity.Credentials)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	model := &IdentityModel{
		ID:              uuid.New(),
		Source:          p.source,
		Username:        identity.Username,
		CredentialsHash: hash,
		AdditionalInfo:  identity.AdditionalInfo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := p.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return nil, err
	}
	return p.toIdentity(model), nil
}

// Update replaces the identity's claim map and, when new credentials are
// supplied, its credential hash.
func (p *Provider) Update(ctx context.Context, identity *provision.ExternalIdentity) (*provision.ExternalIdentity, error) {
	if identity.ID == "" {
		return nil, goerrors.New("identity id is required for update", goerrors.CategoryBadInput)
	}

	query := p.db.NewUpdate().
		Model((*IdentityModel)(nil)).
		Set("additional_info = ?", identity.AdditionalInfo).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", identity.ID).
		Where("?TableAlias.source = ?", p.source)

	if identity.Credentials != "" {
		hash, err := p.hashCredentials(identity.Credentials)
		if err != nil {
			return nil, err
		}
		query = query.Set("credentials_hash = ?", hash)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, goerrors.New("identity not found", goerrors.CategoryNotFound).
			WithMetadata(map[string]any{"id": identity.ID})
	}

	out := *identity
	out.Credentials = ""
	return &out, nil
}

// Delete removes the identity by its provider-assigned id.
func (p *Provider) Delete(ctx context.Context, id string) error {
	res, err := p.db.NewDelete().
		Model((*IdentityModel)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.source = ?", p.source).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return goerrors.New("identity not found", goerrors.CategoryNotFound).
			WithMetadata(map[string]any{"id": id})
	}
	return nil
}

// VerifyCredentials checks a cleartext password against the stored hash.
func (p *Provider) VerifyCredentials(ctx context.Context, username, password string) error {
	model := &IdentityModel{}
	err := p.db.NewSelect().
		Model(model).
		Where("?TableAlias.source = ?", p.source).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goerrors.New("identity not found", goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"username": username})
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(model.CredentialsHash), []byte(password)); err != nil {
		return goerrors.New("invalid credentials", goerrors.CategoryAuth)
	}
	return nil
}

func (p *Provider) hashCredentials(credentials string) (string, error) {
	if credentials == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(credentials), p.cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash credentials")
	}
	return string(hash), nil
}

func (p *Provider) toIdentity(model *IdentityModel) *provision.ExternalIdentity {
	info := make(map[string]any, len(model.AdditionalInfo))
	for k, v := range model.AdditionalInfo {
		info[k] = v
	}
	return &provision.ExternalIdentity{
		ID:             model.ID.String(),
		Username:       model.Username,
		AdditionalInfo: info,
	}
}
