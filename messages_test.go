package provision_test

import (
	"testing"

	"github.com/goliatone/go-provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*provision.NewUser)
		wantErr bool
	}{
		{name: "valid", mutate: func(n *provision.NewUser) {}},
		{name: "missing username", mutate: func(n *provision.NewUser) { n.Username = "" }, wantErr: true},
		{name: "missing email", mutate: func(n *provision.NewUser) { n.Email = "" }, wantErr: true},
		{name: "malformed email", mutate: func(n *provision.NewUser) { n.Email = "not-an-email" }, wantErr: true},
		{name: "email too short", mutate: func(n *provision.NewUser) { n.Email = "a@b.c" }, wantErr: true},
		{name: "no names", mutate: func(n *provision.NewUser) { n.FirstName, n.LastName = "", "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := newUserInput()
			tt.mutate(&input)

			err := input.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewUserNormalizePhone(t *testing.T) {
	input := newUserInput()
	input.Phone = "(415) 555-2671"

	require.NoError(t, input.Normalize())
	assert.Equal(t, "+14155552671", input.Phone)
}

func TestNewUserNormalizeInternationalPhone(t *testing.T) {
	input := newUserInput()
	input.Phone = "+44 20 7946 0958"

	require.NoError(t, input.Normalize())
	assert.Equal(t, "+442079460958", input.Phone)
}

func TestNewUserNormalizeInvalidPhone(t *testing.T) {
	input := newUserInput()
	input.Phone = "12"

	assert.Error(t, input.Normalize())
}

func TestNewUserNormalizeEmptyPhone(t *testing.T) {
	input := newUserInput()

	require.NoError(t, input.Normalize())
	assert.Empty(t, input.Phone)
}

func TestUpdateUserValidate(t *testing.T) {
	assert.NoError(t, provision.UpdateUser{}.Validate())
	assert.NoError(t, provision.UpdateUser{Email: "pepe.rone@example.com"}.Validate())
	assert.Error(t, provision.UpdateUser{Email: "nope"}.Validate())
}
