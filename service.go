package provision

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// UserService implements the user-facing provisioning scenarios on top of
// the synchronizer and token service. State transitions commit before any
// notification is queued; a notification problem never fails the flow.
type UserService struct {
	users    UserStore
	syncer   *Synchronizer
	tokens   TokenService
	notifier Notifications
	logger   Logger
}

// NewUserService wires the flow orchestrator.
func NewUserService(users UserStore, syncer *Synchronizer, tokens TokenService, notifier Notifications, logger Logger) *UserService {
	if logger == nil {
		logger = defLogger{}
	}
	return &UserService{
		users:    users,
		syncer:   syncer,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

// FindByID returns the canonical user with the given identifier.
func (s *UserService) FindByID(ctx context.Context, id string) (*User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, technicalFailure(err, "find_by_id", id)
	}
	return user, nil
}

// FindByDomain lists the canonical users of a domain in stable store order.
func (s *UserService) FindByDomain(ctx context.Context, domain string) ([]*User, error) {
	users, err := s.users.FindByDomain(ctx, domain)
	if err != nil {
		return nil, technicalFailure(err, "find_by_domain", domain)
	}
	return users, nil
}

// Create provisions a user in the domain. In pre-registration mode the
// account is stored disabled with no external identity and the owner gets
// a registration link; otherwise the identity provider is populated first
// and the canonical record stored enabled and completed.
func (s *UserService) Create(ctx context.Context, domain string, input NewUser) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new user")
	}
	if err := input.Normalize(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByDomainAndUsername(ctx, domain, input.Username); err == nil {
		return nil, duplicateIdentity(input.Username)
	} else if !IsUserNotFound(err) {
		return nil, technicalFailure(err, "create", input.Username)
	}

	user := &User{
		Domain:          domain,
		Username:        input.Username,
		Email:           input.Email,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Phone:           input.Phone,
		Source:          input.Source,
		Password:        input.Password,
		Internal:        true,
		PreRegistration: input.PreRegistration,
		AdditionalInfo:  input.AdditionalInfo,
	}
	if user.Source == "" {
		user.Source = DefaultSource(domain)
	}
	if id, err := hashid.NewUUID(domain + "/" + input.Username); err == nil {
		user.ID = id
	}

	if input.PreRegistration {
		// The owner completes the account through the emailed link; until
		// then it is a disabled, canonical-only record.
		user.Password = ""
		user.Enabled = false
		user.RegistrationCompleted = false

		created, err := s.users.Create(ctx, user)
		if err != nil {
			return nil, technicalFailure(err, "create", input.Username)
		}

		s.notifyRegistration(created)
		return created, nil
	}

	user.Enabled = true
	user.RegistrationCompleted = true
	return s.syncer.CreateUser(ctx, user)
}

// Update applies requested changes through the synchronizer.
func (s *UserService) Update(ctx context.Context, domain, id string, input UpdateUser) (*User, error) {
	if err := input.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid user update")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, technicalFailure(err, "update", id)
	}
	if domain != "" && user.Domain != domain {
		return nil, userNotFound(id)
	}

	return s.syncer.UpdateUser(ctx, user, input)
}

// Delete removes the user from both stores through the synchronizer.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return technicalFailure(err, "delete", id)
	}
	return s.syncer.DeleteUser(ctx, user)
}

// VerifyToken checks a registration or reset token and re-identifies the
// canonical user it was issued for.
func (s *UserService) VerifyToken(ctx context.Context, token string) (*User, *RegistrationClaims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindByID(ctx, claims.RegisteredClaims.Subject)
	if err != nil {
		return nil, nil, technicalFailure(err, "verify_token", claims.RegisteredClaims.Subject)
	}
	return user, claims, nil
}

// ConfirmRegistration completes a pre-registered account: the external
// identity is created from the confirmed canonical attributes and the
// record flips to enabled and completed.
func (s *UserService) ConfirmRegistration(ctx context.Context, user *User) (*User, error) {
	return s.syncer.CompleteRegistration(ctx, user)
}

// ForgotPassword issues a reset link for the first internal user in the
// domain with the given email, in the store's stable order. No state
// changes until the link is used.
func (s *UserService) ForgotPassword(ctx context.Context, domain, email string) error {
	users, err := s.users.FindByDomainAndEmail(ctx, domain, email)
	if err != nil {
		return technicalFailure(err, "forgot_password", email)
	}

	var target *User
	for _, candidate := range users {
		if candidate.Internal {
			target = candidate
			break
		}
	}
	if target == nil {
		return userNotFound(email)
	}

	token, _, err := s.tokens.Issue(target)
	if err != nil {
		return technicalFailure(err, "forgot_password", email)
	}

	s.notifier.QueueResetPassword(target, token)
	return nil
}

// ResetPassword sets new credentials through the synchronizer, lazily
// materializing the external identity when needed.
func (s *UserService) ResetPassword(ctx context.Context, id, password string) (*User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, technicalFailure(err, "reset_password", id)
	}
	return s.syncer.ResetPassword(ctx, user, password)
}

// SendRegistrationConfirmation re-issues the registration link for an
// account still pending pre-registration.
func (s *UserService) SendRegistrationConfirmation(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return technicalFailure(err, "send_registration_confirmation", id)
	}

	if !user.PreRegistration {
		return invalidAccountState("pre-registration is disabled for the user", id)
	}
	if user.RegistrationCompleted {
		return invalidAccountState("registration is already completed for the user", id)
	}

	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return technicalFailure(err, "send_registration_confirmation", id)
	}

	s.notifier.QueueRegistration(user, token)
	return nil
}

func (s *UserService) notifyRegistration(user *User) {
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue registration token for %s: %v", user.Username, err)
		return
	}
	s.notifier.QueueRegistration(user, token)
}
