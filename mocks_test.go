package provision_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-provision"
	"github.com/stretchr/testify/mock"
)

// MockProvider implements provision.UserProvider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) FindByUsername(ctx context.Context, username string) (provision.Lookup, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(provision.Lookup), args.Error(1)
}

func (m *MockProvider) Create(ctx context.Context, identity *provision.ExternalIdentity) (*provision.ExternalIdentity, error) {
	args := m.Called(ctx, identity)
	var out *provision.ExternalIdentity
	if v := args.Get(0); v != nil {
		out = v.(*provision.ExternalIdentity)
	}
	return out, args.Error(1)
}

func (m *MockProvider) Update(ctx context.Context, identity *provision.ExternalIdentity) (*provision.ExternalIdentity, error) {
	args := m.Called(ctx, identity)
	var out *provision.ExternalIdentity
	if v := args.Get(0); v != nil {
		out = v.(*provision.ExternalIdentity)
	}
	return out, args.Error(1)
}

func (m *MockProvider) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMailer implements provision.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, email provision.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// fakeUserStore is an in-memory canonical store that preserves insertion
// order, standing in for the bun-backed repository.
type fakeUserStore struct {
	mu        sync.Mutex
	users     []*provision.User
	createErr error
	updateErr error
	deleteErr error
}

func newFakeUserStore(users ...*provision.User) *fakeUserStore {
	return &fakeUserStore{users: users}
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*provision.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID.String() == id {
			return u, nil
		}
	}
	return nil, provision.ErrUserNotFound.Clone()
}

func (f *fakeUserStore) FindByDomain(ctx context.Context, domain string) ([]*provision.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*provision.User
	for _, u := range f.users {
		if u.Domain == domain {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) FindByDomainAndUsername(ctx context.Context, domain, username string) (*provision.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Domain == domain && u.Username == username {
			return u, nil
		}
	}
	return nil, provision.ErrUserNotFound.Clone()
}

func (f *fakeUserStore) FindByDomainAndEmail(ctx context.Context, domain, email string) ([]*provision.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*provision.User
	for _, u := range f.users {
		if u.Domain == domain && u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) Create(ctx context.Context, user *provision.User) (*provision.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeUserStore) Update(ctx context.Context, user *provision.User) (*provision.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == user.ID {
			f.users[i] = user
			return user, nil
		}
	}
	return nil, provision.ErrUserNotFound.Clone()
}

func (f *fakeUserStore) DeleteByID(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID.String() == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return provision.ErrUserNotFound.Clone()
}

// notice records a queued notification.
type notice struct {
	user  *provision.User
	token string
}

// recordingNotifier implements provision.Notifications
type recordingNotifier struct {
	mu            sync.Mutex
	registrations []notice
	resets        []notice
}

func (r *recordingNotifier) QueueRegistration(user *provision.User, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, notice{user: user, token: token})
}

func (r *recordingNotifier) QueueResetPassword(user *provision.User, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, notice{user: user, token: token})
}

// stubTokens implements provision.TokenService with predictable tokens of
// the form "token-<subject>".
type stubTokens struct {
	issueErr  error
	verifyErr error
}

func (s *stubTokens) Issue(user *provision.User) (string, *provision.RegistrationClaims, error) {
	return s.IssueWithTTL(user, time.Minute)
}

func (s *stubTokens) IssueWithTTL(user *provision.User, ttl time.Duration) (string, *provision.RegistrationClaims, error) {
	if s.issueErr != nil {
		return "", nil, s.issueErr
	}
	claims := &provision.RegistrationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
		Email:      user.Email,
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
	}
	return "token-" + user.ID.String(), claims, nil
}

func (s *stubTokens) Verify(token string) (*provision.RegistrationClaims, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	if len(token) < len("token-") {
		return nil, provision.ErrTokenInvalid.Clone()
	}
	return &provision.RegistrationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: token[len("token-"):],
		},
	}, nil
}

// testLogger captures log lines for assertions.
type testLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *testLogger) Debug(format string, args ...any) { l.append("DBG", format, args...) }
func (l *testLogger) Info(format string, args ...any)  { l.append("INF", format, args...) }
func (l *testLogger) Error(format string, args ...any) { l.append("ERR", format, args...) }

func (l *testLogger) append(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}
