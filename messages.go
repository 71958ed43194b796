package provision

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

const defaultPhoneRegion = "US"

// NewUser carries the attributes for user creation.
type NewUser struct {
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Phone           string         `json:"phone"`
	Password        string         `json:"password"`
	Source          string         `json:"source"`
	PreRegistration bool           `json:"pre_registration"`
	AdditionalInfo  map[string]any `json:"additional_info"`
}

// Validate checks the creation payload before any store is touched.
func (n NewUser) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Username, validation.Required, validation.Length(1, 200)),
		validation.Field(&n.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&n.FirstName, validation.Length(0, 200)),
		validation.Field(&n.LastName, validation.Length(0, 200)),
	)
}

// Normalize canonicalizes free-form fields, currently the phone number.
func (n *NewUser) Normalize() error {
	if n.Phone == "" {
		return nil
	}

	num, err := phonenumbers.Parse(n.Phone, defaultPhoneRegion)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}

	n.Phone = phonenumbers.Format(num, phonenumbers.E164)
	return nil
}

// UpdateUser carries requested changes to an existing user. Zero values
// mean "leave unchanged"; Enabled uses a pointer for the same reason.
type UpdateUser struct {
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Phone          string         `json:"phone"`
	Enabled        *bool          `json:"enabled"`
	AdditionalInfo map[string]any `json:"additional_info"`
}

// Validate checks the update payload.
func (u UpdateUser) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.Length(6, 100), is.Email),
		validation.Field(&u.FirstName, validation.Length(0, 200)),
		validation.Field(&u.LastName, validation.Length(0, 200)),
	)
}

// apply merges the requested changes onto the canonical record. The
// additional info map is rebuilt so the update payload and the record
// never share storage.
func (u UpdateUser) apply(user *User) {
	if u.Email != "" {
		user.Email = u.Email
	}
	if u.FirstName != "" {
		user.FirstName = u.FirstName
	}
	if u.LastName != "" {
		user.LastName = u.LastName
	}
	if u.Phone != "" {
		user.Phone = u.Phone
	}
	if u.Enabled != nil {
		user.Enabled = *u.Enabled
	}
	if len(u.AdditionalInfo) > 0 {
		info := make(map[string]any, len(user.AdditionalInfo)+len(u.AdditionalInfo))
		for k, v := range user.AdditionalInfo {
			info[k] = v
		}
		for k, v := range u.AdditionalInfo {
			info[k] = v
		}
		user.AdditionalInfo = info
	}
}
