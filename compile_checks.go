package provision

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateUserMessage]               = (*CreateUserHandler)(nil)
	_ gocmd.Commander[UpdateUserMessage]               = (*UpdateUserHandler)(nil)
	_ gocmd.Commander[DeleteUserMessage]               = (*DeleteUserHandler)(nil)
	_ gocmd.Commander[ConfirmRegistrationMessage]      = (*ConfirmRegistrationHandler)(nil)
	_ gocmd.Commander[ForgotPasswordMessage]           = (*ForgotPasswordHandler)(nil)
	_ gocmd.Commander[ResetPasswordMessage]            = (*ResetPasswordHandler)(nil)
	_ gocmd.Commander[RegistrationConfirmationMessage] = (*RegistrationConfirmationHandler)(nil)
)
