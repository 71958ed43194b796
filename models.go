package provision

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SourcePrefix prefixes the identity provider source assigned to users
// created without an explicit source binding.
const SourcePrefix = "default-idp-"

// DefaultSource returns the built-in identity provider source for a domain.
func DefaultSource(domain string) string {
	return SourcePrefix + domain
}

// User is the canonical user record. It exists for management and audit
// purposes; credentials and authentication state live in the external
// identity provider bound through Source.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Domain    string    `bun:"domain,notnull" json:"domain,omitempty"`
	Username  string    `bun:"username,notnull" json:"username,omitempty"`
	Email     string    `bun:"email" json:"email,omitempty"`
	FirstName string    `bun:"first_name" json:"first_name,omitempty"`
	LastName  string    `bun:"last_name" json:"last_name,omitempty"`
	Phone     string    `bun:"phone_number" json:"phone_number,omitempty"`
	Source    string    `bun:"source,notnull" json:"source,omitempty"`

	// Password is only held transiently while an operation hands the
	// secret to the external store. It is never persisted here.
	Password string `bun:"-" json:"-"`

	Internal              bool           `bun:"internal" json:"internal,omitempty"`
	Enabled               bool           `bun:"enabled" json:"enabled,omitempty"`
	PreRegistration       bool           `bun:"pre_registration" json:"pre_registration,omitempty"`
	RegistrationCompleted bool           `bun:"registration_completed" json:"registration_completed,omitempty"`
	AdditionalInfo        map[string]any `bun:"additional_info,type:jsonb" json:"additional_info,omitempty"`
	CreatedAt             *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt             *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt             *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// FullName joins first and last name for display and email subjects.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// SyncKey identifies the serialization scope for store reconciliation.
func (u *User) SyncKey() string {
	return u.Domain + "/" + u.Username
}

// AddInfo appends a claim to the additional info map.
func (u *User) AddInfo(key string, val any) *User {
	if u.AdditionalInfo == nil {
		u.AdditionalInfo = make(map[string]any)
	}
	u.AdditionalInfo[key] = val
	return u
}

// Touch stamps UpdatedAt with the current time.
func (u *User) Touch() {
	now := time.Now()
	u.UpdatedAt = &now
}
