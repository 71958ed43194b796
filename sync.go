package provision

import (
	"context"
	"sync"
)

// Synchronizer reconciles the canonical store with the identity provider
// resolved from a user's source. Each operation is a short saga, not a
// transaction: the external store is mutated before the canonical store
// commits, so a canonical success implies the external side is at least
// as current. Operations on the same (domain, username) key run serially.
type Synchronizer struct {
	users     UserStore
	providers *ProviderRegistry
	logger    Logger
	keys      keyedMutex
}

// NewSynchronizer creates a synchronizer over the canonical store and
// provider registry.
func NewSynchronizer(users UserStore, providers *ProviderRegistry, logger Logger) *Synchronizer {
	if logger == nil {
		logger = defLogger{}
	}
	return &Synchronizer{
		users:     users,
		providers: providers,
		logger:    logger,
	}
}

// CreateUser stores the user in its identity provider, clears the secret
// from the canonical record, and persists it. Username uniqueness inside
// the provider is enforced by the provider itself.
func (s *Synchronizer) CreateUser(ctx context.Context, user *User) (*User, error) {
	unlock := s.keys.lock(user.SyncKey())
	defer unlock()

	provider, err := s.providers.Resolve(user.Source)
	if err != nil {
		return nil, err
	}

	if _, err := provider.Create(ctx, IdentityFromUser(user)); err != nil {
		return nil, s.fault(err, "create", user.Username)
	}

	// The canonical store is for management and audit only; the secret
	// now lives with the provider.
	user.Password = ""

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, s.fault(err, "create", user.Username)
	}
	return created, nil
}

// UpdateUser pushes requested changes to the external identity when one
// exists, then updates the canonical record. A missing external identity
// is legitimate (canonical-only accounts pending registration) and leaves
// the external side untouched.
func (s *Synchronizer) UpdateUser(ctx context.Context, user *User, update UpdateUser) (*User, error) {
	unlock := s.keys.lock(user.SyncKey())
	defer unlock()

	provider, err := s.providers.Resolve(user.Source)
	if err != nil {
		return nil, err
	}

	lookup, err := provider.FindByUsername(ctx, user.Username)
	if err != nil {
		return nil, s.fault(err, "update", user.Username)
	}

	if lookup.Found {
		if _, err := provider.Update(ctx, MergeUpdate(lookup.Identity, update)); err != nil {
			return nil, s.fault(err, "update", user.Username)
		}
	}

	update.apply(user)
	user.Touch()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, s.fault(err, "update", user.Username)
	}
	return updated, nil
}

// DeleteUser removes the external identity first when one exists, then
// the canonical record. A failure on either side surfaces as-is; there is
// no silent partial delete and no automatic retry.
func (s *Synchronizer) DeleteUser(ctx context.Context, user *User) error {
	unlock := s.keys.lock(user.SyncKey())
	defer unlock()

	provider, err := s.providers.Resolve(user.Source)
	if err != nil {
		return err
	}

	lookup, err := provider.FindByUsername(ctx, user.Username)
	if err != nil {
		return s.fault(err, "delete", user.Username)
	}

	if lookup.Found {
		if err := provider.Delete(ctx, lookup.Identity.ID); err != nil {
			return s.fault(err, "delete", user.Username)
		}
	}

	if err := s.users.DeleteByID(ctx, user.ID.String()); err != nil {
		return s.fault(err, "delete", user.Username)
	}
	return nil
}

// ResetPassword sets the user's credentials in the external store,
// materializing the identity from canonical attributes when it does not
// exist yet. Completing a reset finishes a pending pre-registration.
func (s *Synchronizer) ResetPassword(ctx context.Context, user *User, password string) (*User, error) {
	unlock := s.keys.lock(user.SyncKey())
	defer unlock()

	provider, err := s.providers.Resolve(user.Source)
	if err != nil {
		return nil, err
	}

	lookup, err := provider.FindByUsername(ctx, user.Username)
	if err != nil {
		return nil, s.fault(err, "reset_password", user.Username)
	}

	if lookup.Found {
		identity := *lookup.Identity
		identity.Credentials = password
		if _, err := provider.Update(ctx, &identity); err != nil {
			return nil, s.fault(err, "reset_password", user.Username)
		}
	} else {
		seed := *user
		seed.Password = password
		if _, err := provider.Create(ctx, IdentityFromUser(&seed)); err != nil {
			return nil, s.fault(err, "reset_password", user.Username)
		}
	}

	if user.PreRegistration {
		user.RegistrationCompleted = true
	}
	user.Password = ""
	user.Touch()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, s.fault(err, "reset_password", user.Username)
	}
	return updated, nil
}

// CompleteRegistration creates the external identity from the canonical
// attributes the user confirmed, then flips the canonical record to an
// enabled, completed account with the secret cleared.
func (s *Synchronizer) CompleteRegistration(ctx context.Context, user *User) (*User, error) {
	unlock := s.keys.lock(user.SyncKey())
	defer unlock()

	provider, err := s.providers.Resolve(user.Source)
	if err != nil {
		return nil, err
	}

	if _, err := provider.Create(ctx, IdentityFromUser(user)); err != nil {
		return nil, s.fault(err, "confirm_registration", user.Username)
	}

	user.Password = ""
	user.RegistrationCompleted = true
	user.Enabled = true
	user.Touch()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, s.fault(err, "confirm_registration", user.Username)
	}
	return updated, nil
}

func (s *Synchronizer) fault(err error, operation, username string) error {
	wrapped := technicalFailure(err, operation, username)
	if wrapped != err {
		s.logger.Error("synchronizer %s failed for %s: %v", operation, username, err)
	}
	return wrapped
}

// keyedMutex serializes synchronizer operations per key so interleaved
// create/update sagas cannot diverge the two stores.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
