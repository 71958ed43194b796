package provision

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Command type identifiers for the provisioning flows.
const (
	TypeCreateUser               = "provision.user.create"
	TypeUpdateUser               = "provision.user.update"
	TypeDeleteUser               = "provision.user.delete"
	TypeConfirmRegistration      = "provision.user.confirm_registration"
	TypeForgotPassword           = "provision.user.forgot_password"
	TypeResetPassword            = "provision.user.reset_password"
	TypeRegistrationConfirmation = "provision.user.send_confirmation"
)

// CreateUserMessage provisions a user in a domain.
type CreateUserMessage struct {
	Domain     string  `json:"domain"`
	User       NewUser `json:"user"`
	OnResponse func(*User)
}

func (CreateUserMessage) Type() string { return TypeCreateUser }

// CreateUserHandler executes the create flow.
type CreateUserHandler struct {
	users *UserService
}

// NewCreateUserHandler builds the handler.
func NewCreateUserHandler(users *UserService) *CreateUserHandler {
	return &CreateUserHandler{users: users}
}

func (h *CreateUserHandler) Execute(ctx context.Context, msg CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user creation")
	default:
	}

	user, err := h.users.Create(ctx, msg.Domain, msg.User)
	if err != nil {
		return err
	}
	if msg.OnResponse != nil {
		msg.OnResponse(user)
	}
	return nil
}

// UpdateUserMessage applies changes to an existing user.
type UpdateUserMessage struct {
	Domain     string     `json:"domain"`
	UserID     string     `json:"user_id"`
	Update     UpdateUser `json:"update"`
	OnResponse func(*User)
}

func (UpdateUserMessage) Type() string { return TypeUpdateUser }

// UpdateUserHandler executes the update flow.
type UpdateUserHandler struct {
	users *UserService
}

// NewUpdateUserHandler builds the handler.
func NewUpdateUserHandler(users *UserService) *UpdateUserHandler {
	return &UpdateUserHandler{users: users}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, msg UpdateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user update")
	default:
	}

	user, err := h.users.Update(ctx, msg.Domain, msg.UserID, msg.Update)
	if err != nil {
		return err
	}
	if msg.OnResponse != nil {
		msg.OnResponse(user)
	}
	return nil
}

// DeleteUserMessage removes a user from both stores.
type DeleteUserMessage struct {
	UserID string `json:"user_id"`
}

func (DeleteUserMessage) Type() string { return TypeDeleteUser }

// DeleteUserHandler executes the delete flow.
type DeleteUserHandler struct {
	users *UserService
}

// NewDeleteUserHandler builds the handler.
func NewDeleteUserHandler(users *UserService) *DeleteUserHandler {
	return &DeleteUserHandler{users: users}
}

func (h *DeleteUserHandler) Execute(ctx context.Context, msg DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during user deletion")
	default:
	}
	return h.users.Delete(ctx, msg.UserID)
}

// ConfirmRegistrationMessage completes a pre-registered account from an
// emailed link: the token re-identifies the user, the password becomes
// the account's credentials in its identity provider.
type ConfirmRegistrationMessage struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	OnResponse func(*User)
}

func (ConfirmRegistrationMessage) Type() string { return TypeConfirmRegistration }

// ConfirmRegistrationHandler executes the confirm-registration flow.
type ConfirmRegistrationHandler struct {
	users *UserService
}

// NewConfirmRegistrationHandler builds the handler.
func NewConfirmRegistrationHandler(users *UserService) *ConfirmRegistrationHandler {
	return &ConfirmRegistrationHandler{users: users}
}

func (h *ConfirmRegistrationHandler) Execute(ctx context.Context, msg ConfirmRegistrationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration confirmation")
	default:
	}

	user, _, err := h.users.VerifyToken(ctx, msg.Token)
	if err != nil {
		return err
	}

	user.Password = msg.Password
	confirmed, err := h.users.ConfirmRegistration(ctx, user)
	if err != nil {
		return err
	}
	if msg.OnResponse != nil {
		msg.OnResponse(confirmed)
	}
	return nil
}

// ForgotPasswordMessage starts the reset flow for an email in a domain.
type ForgotPasswordMessage struct {
	Domain string `json:"domain"`
	Email  string `json:"email"`
}

func (ForgotPasswordMessage) Type() string { return TypeForgotPassword }

// ForgotPasswordHandler executes the forgot-password flow.
type ForgotPasswordHandler struct {
	users *UserService
}

// NewForgotPasswordHandler builds the handler.
func NewForgotPasswordHandler(users *UserService) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{users: users}
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, msg ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during forgot password")
	default:
	}
	return h.users.ForgotPassword(ctx, msg.Domain, msg.Email)
}

// ResetPasswordMessage sets new credentials. Token is optional: an
// already-authenticated call site may address the user directly.
type ResetPasswordMessage struct {
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
	Password   string `json:"password"`
	OnResponse func(*User)
}

func (ResetPasswordMessage) Type() string { return TypeResetPassword }

// ResetPasswordHandler executes the reset-password flow.
type ResetPasswordHandler struct {
	users *UserService
}

// NewResetPasswordHandler builds the handler.
func NewResetPasswordHandler(users *UserService) *ResetPasswordHandler {
	return &ResetPasswordHandler{users: users}
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, msg ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset")
	default:
	}

	userID := msg.UserID
	if msg.Token != "" {
		user, _, err := h.users.VerifyToken(ctx, msg.Token)
		if err != nil {
			return err
		}
		userID = user.ID.String()
	}

	user, err := h.users.ResetPassword(ctx, userID, msg.Password)
	if err != nil {
		return err
	}
	if msg.OnResponse != nil {
		msg.OnResponse(user)
	}
	return nil
}

// RegistrationConfirmationMessage re-sends the registration link for a
// pending pre-registration.
type RegistrationConfirmationMessage struct {
	UserID string `json:"user_id"`
}

func (RegistrationConfirmationMessage) Type() string { return TypeRegistrationConfirmation }

// RegistrationConfirmationHandler executes the resend-confirmation flow.
type RegistrationConfirmationHandler struct {
	users *UserService
}

// NewRegistrationConfirmationHandler builds the handler.
func NewRegistrationConfirmationHandler(users *UserService) *RegistrationConfirmationHandler {
	return &RegistrationConfirmationHandler{users: users}
}

func (h *RegistrationConfirmationHandler) Execute(ctx context.Context, msg RegistrationConfirmationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during confirmation resend")
	default:
	}
	return h.users.SendRegistrationConfirmation(ctx, msg.UserID)
}
