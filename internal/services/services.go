package services

import (
	"context"
	"errors"

	"github.com/Amirbeek/TinyDesk/internal/models"
	"github.com/Amirbeek/TinyDesk/internal/oauth"
)

var (
	ErrEmailTaken            = errors.New("an account with this email already exists")
	ErrUserNotFound          = errors.New("no account with this email")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrNotActivated          = errors.New("account is not activated")
	ErrAlreadyActivated      = errors.New("account is already activated")
	ErrInvalidActivationLink = errors.New("invalid or expired activation link")
	ErrInvalidResetLink      = errors.New("invalid or expired reset link")
	ErrInvalidOAuthState     = errors.New("invalid or expired oauth state")
	ErrOAuthExchange         = errors.New("google sign-in failed")
	ErrUnverifiedOAuthEmail  = errors.New("google account email is not verified")
	ErrInternal              = errors.New("internal server error")
)

// AuthService orchestrates the account flows: signup and activation, login,
// password reset and Google sign-in. Storage and codec errors are
// translated into the sentinel errors above before they leave this layer.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*models.User, error)
	Activate(ctx context.Context, tokenValue string) error
	ResendActivation(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, tokenValue, newPassword string) error
	OAuthURL(ctx context.Context) (string, error)
	CompleteOAuth(ctx context.Context, state, code string) (string, error)
}

// OAuthProvider is the slice of the Google client the service needs.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Profile, error)
}
