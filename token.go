package provision

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// RegistrationClaims is the claim set carried by registration and
// password-reset links. The subject is the canonical user identifier.
type RegistrationClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// TokenService signs and verifies the short-lived tokens that let a
// multi-step flow resume without server-side session state.
type TokenService interface {
	Issue(user *User) (string, *RegistrationClaims, error)
	IssueWithTTL(user *User, ttl time.Duration) (string, *RegistrationClaims, error)
	Verify(token string) (*RegistrationClaims, error)
}

// TokenServiceImpl implements TokenService with a single HMAC key.
// Key rotation is not supported; the key, issuer, and key id are
// process-wide configuration loaded once at startup.
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	keyID      string
	ttl        time.Duration
	logger     Logger
	timeFunc   func() time.Time
}

// NewTokenService creates a TokenService from process configuration.
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		keyID:      cfg.GetKeyID(),
		ttl:        time.Duration(cfg.GetTokenExpiration()) * time.Second,
		logger:     logger,
		timeFunc:   time.Now,
	}
}

// Issue signs a token for the user with the configured validity window.
func (ts *TokenServiceImpl) Issue(user *User) (string, *RegistrationClaims, error) {
	return ts.IssueWithTTL(user, ts.ttl)
}

// IssueWithTTL signs a token for the user with an explicit validity window.
func (ts *TokenServiceImpl) IssueWithTTL(user *User, ttl time.Duration) (string, *RegistrationClaims, error) {
	if user == nil {
		return "", nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}
	if ttl < 0 {
		return "", nil, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	now := ts.timeFunc()
	claims := &RegistrationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:      user.Email,
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if ts.keyID != "" {
		token.Header["kid"] = ts.keyID
	}

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign registration token")
	}

	return signed, claims, nil
}

// Verify parses a token, checks signature, expiry, and issuer, and
// returns the embedded claim set unchanged.
func (ts *TokenServiceImpl) Verify(tokenString string) (*RegistrationClaims, error) {
	parserOptions := []jwt.ParserOption{jwt.WithTimeFunc(ts.timeFunc)}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &RegistrationClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, goerrors.New("unexpected signing method", goerrors.CategoryAuth)
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, tokenVerificationError(ErrTokenExpired, err)
		}
		return nil, tokenVerificationError(ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*RegistrationClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return nil, ErrTokenInvalid.Clone()
	}

	return claims, nil
}

func tokenVerificationError(base *goerrors.Error, cause error) error {
	clone := base.Clone()
	clone.Source = cause
	return clone.WithMetadata(map[string]any{
		"cause": cause.Error(),
	})
}
