package provision_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-provision"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenConfig() provision.Settings {
	return provision.Settings{
		SigningKey:      "test-signing-key",
		Issuer:          "https://provision.test",
		KeyID:           "test-kid",
		TokenExpiration: 3600,
		GatewayURL:      "http://localhost:8092",
	}
}

func tokenUser() *provision.User {
	return &provision.User{
		ID:        uuid.New(),
		Domain:    "acme",
		Username:  "pepe.rone",
		Email:     "pepe.rone@example.com",
		FirstName: "Pepe",
		LastName:  "Rone",
	}
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)
	user := tokenUser()

	token, issued, err := service.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), claims.RegisteredClaims.Subject)
	assert.Equal(t, "https://provision.test", claims.RegisteredClaims.Issuer)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.FirstName, claims.GivenName)
	assert.Equal(t, user.LastName, claims.FamilyName)
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, issued.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestTokenServiceKeyIDHeader(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)

	token, _, err := service.Issue(tokenUser())
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &provision.RegistrationClaims{})
	require.NoError(t, err)
	assert.Equal(t, "test-kid", parsed.Header["kid"])
}

func TestTokenServiceVerifyExpired(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)
	user := tokenUser()

	// Signed with the right key but already past its window.
	now := time.Now().Add(-2 * time.Hour)
	claims := &provision.RegistrationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://provision.test",
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = service.Verify(expired)
	require.Error(t, err)
	assert.True(t, provision.IsTokenExpired(err))
	assert.False(t, provision.IsTokenInvalid(err))
}

func TestTokenServiceVerifyWrongKey(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)

	other := tokenConfig()
	other.SigningKey = "another-signing-key"
	intruder := provision.NewTokenService(other, nil)

	token, _, err := intruder.Issue(tokenUser())
	require.NoError(t, err)

	_, err = service.Verify(token)
	require.Error(t, err)
	assert.True(t, provision.IsTokenInvalid(err))
	assert.False(t, provision.IsTokenExpired(err))
}

func TestTokenServiceVerifyWrongIssuer(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)

	other := tokenConfig()
	other.Issuer = "https://somewhere.else"
	stranger := provision.NewTokenService(other, nil)

	token, _, err := stranger.Issue(tokenUser())
	require.NoError(t, err)

	_, err = service.Verify(token)
	require.Error(t, err)
	assert.True(t, provision.IsTokenInvalid(err))
}

func TestTokenServiceVerifyGarbage(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)

	_, err := service.Verify("not-a-token")
	require.Error(t, err)
	assert.True(t, provision.IsTokenInvalid(err))
}

func TestTokenServiceIssueWithTTL(t *testing.T) {
	service := provision.NewTokenService(tokenConfig(), nil)

	_, claims, err := service.IssueWithTTL(tokenUser(), 10*time.Minute)
	require.NoError(t, err)

	window := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, 10*time.Minute, window)

	_, _, err = service.IssueWithTTL(tokenUser(), -time.Second)
	assert.Error(t, err)

	_, _, err = service.IssueWithTTL(nil, time.Minute)
	assert.Error(t, err)
}
