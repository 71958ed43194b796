package provision

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface used across the package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds process-wide provisioning options, loaded once at startup.
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetKeyID() string
	// GetTokenExpiration is the token validity window in seconds.
	GetTokenExpiration() int
	GetGatewayURL() string
}

// Settings is a plain Config implementation for programmatic setup.
type Settings struct {
	SigningKey      string
	Issuer          string
	KeyID           string
	TokenExpiration int
	GatewayURL      string
}

func (s Settings) GetSigningKey() string   { return s.SigningKey }
func (s Settings) GetIssuer() string       { return s.Issuer }
func (s Settings) GetKeyID() string        { return s.KeyID }
func (s Settings) GetTokenExpiration() int { return s.TokenExpiration }
func (s Settings) GetGatewayURL() string   { return s.GatewayURL }

// UserStore is the slice of the canonical repository the provisioning
// flows depend on. The bun-backed implementation lives in repo_users.go.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByDomain(ctx context.Context, domain string) ([]*User, error)
	FindByDomainAndUsername(ctx context.Context, domain, username string) (*User, error)
	FindByDomainAndEmail(ctx context.Context, domain, email string) ([]*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	DeleteByID(ctx context.Context, id string) error
}

// Notifications queues flow notifications after a committed state
// transition. Implementations must never block the caller.
type Notifications interface {
	QueueRegistration(user *User, token string)
	QueueResetPassword(user *User, token string)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PROVISION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PROVISION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PROVISION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
