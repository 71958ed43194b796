package provision

import "context"

// Standard claim keys used when translating canonical attributes into the
// provider-side additional info map.
const (
	ClaimEmail      = "email"
	ClaimGivenName  = "given_name"
	ClaimFamilyName = "family_name"
)

// ExternalIdentity is the identity-provider-side representation of a user.
// It is exclusively owned by the provider resolved from the user's source;
// the canonical store never assumes it exists.
type ExternalIdentity struct {
	ID             string
	Username       string
	Credentials    string
	AdditionalInfo map[string]any
}

// Lookup is the two-variant result of a provider username search, forcing
// call sites to handle the absent case explicitly.
type Lookup struct {
	Identity *ExternalIdentity
	Found    bool
}

// FoundIdentity wraps an identity the provider knows about.
func FoundIdentity(identity *ExternalIdentity) Lookup {
	return Lookup{Identity: identity, Found: true}
}

// AbsentIdentity marks a username the provider has no record of.
func AbsentIdentity() Lookup {
	return Lookup{}
}

// UserProvider is the capability set every identity provider implements.
// One instance is registered per source; the synchronizer never
// special-cases a provider type.
type UserProvider interface {
	FindByUsername(ctx context.Context, username string) (Lookup, error)
	Create(ctx context.Context, identity *ExternalIdentity) (*ExternalIdentity, error)
	Update(ctx context.Context, identity *ExternalIdentity) (*ExternalIdentity, error)
	Delete(ctx context.Context, id string) error
}

// IdentityFromUser translates a canonical user into the provider-side
// representation. The claim map is rebuilt on every call so the canonical
// record and the external identity never alias the same map.
func IdentityFromUser(user *User) *ExternalIdentity {
	info := make(map[string]any, len(user.AdditionalInfo)+3)
	if user.FirstName != "" {
		info[ClaimGivenName] = user.FirstName
	}
	if user.LastName != "" {
		info[ClaimFamilyName] = user.LastName
	}
	if user.Email != "" {
		info[ClaimEmail] = user.Email
	}
	for k, v := range user.AdditionalInfo {
		info[k] = v
	}

	return &ExternalIdentity{
		Username:       user.Username,
		Credentials:    user.Password,
		AdditionalInfo: info,
	}
}

// MergeUpdate overlays requested changes onto an existing external
// identity's claim map, later keys winning, and returns a new identity
// value. The input identity is left untouched.
func MergeUpdate(identity *ExternalIdentity, update UpdateUser) *ExternalIdentity {
	info := make(map[string]any, len(identity.AdditionalInfo)+3)
	for k, v := range identity.AdditionalInfo {
		info[k] = v
	}
	if update.FirstName != "" {
		info[ClaimGivenName] = update.FirstName
	}
	if update.LastName != "" {
		info[ClaimFamilyName] = update.LastName
	}
	if update.Email != "" {
		info[ClaimEmail] = update.Email
	}
	for k, v := range update.AdditionalInfo {
		info[k] = v
	}

	merged := *identity
	merged.AdditionalInfo = info
	return &merged
}
