package ports

import "context"

// EmailAPI wraps the verification and password-reset endpoints.
type EmailAPI interface {
	SendVerificationEmail(ctx context.Context, email string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
