package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Amirbeek/TinyDesk/internal/mailer"
	"github.com/Amirbeek/TinyDesk/internal/models"
	"github.com/Amirbeek/TinyDesk/internal/oauth"
	"github.com/Amirbeek/TinyDesk/internal/repository"
	"github.com/Amirbeek/TinyDesk/internal/token"
)

const oauthStateTTL = 10 * time.Minute

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	codec     *token.Codec
	mail      mailer.Mailer
	google    OAuthProvider
	states    oauth.StateStore
	log       *zap.SugaredLogger

	frontendURL   string
	sessionTTL    time.Duration
	activationTTL time.Duration
	resetTTL      time.Duration
	hashCost      int

	// dummyHash is compared against when login finds no user, so unknown
	// emails and wrong passwords take the same time and fail identically.
	dummyHash []byte
}

// NewAuthService wires the flow controller. All tunables come in here once
// at startup; nothing reads configuration at call time.
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	codec *token.Codec,
	mail mailer.Mailer,
	google OAuthProvider,
	states oauth.StateStore,
	log *zap.SugaredLogger,
	frontendURL string,
	sessionTTL, activationTTL, resetTTL time.Duration,
	hashCost int,
) (AuthService, error) {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare comparison hash: %w", err)
	}

	return &authService{
		userRepo:      userRepo,
		tokenRepo:     tokenRepo,
		codec:         codec,
		mail:          mail,
		google:        google,
		states:        states,
		log:           log,
		frontendURL:   frontendURL,
		sessionTTL:    sessionTTL,
		activationTTL: activationTTL,
		resetTTL:      resetTTL,
		hashCost:      hashCost,
		dummyHash:     dummy,
	}, nil
}

// Signup creates an inactive account and mails the activation link. The
// email uniqueness check is the storage layer's unique index; a lost race
// between two concurrent signups surfaces here as ErrEmailTaken.
func (s *authService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", ErrInternal)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsActivated:  false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		s.log.Errorw("signup: create user failed", "error", err)
		return nil, ErrInternal
	}

	if err := s.sendActivation(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *authService) sendActivation(ctx context.Context, user *models.User) error {
	value, err := s.tokenRepo.Create(ctx, user.ID, models.PurposeActivation, s.activationTTL)
	if err != nil {
		s.log.Errorw("activation token create failed", "error", err)
		return ErrInternal
	}

	link := s.frontendURL + "/activate/" + value
	if err := s.mail.SendActivation(ctx, user.Email, user.Name, link); err != nil {
		s.log.Errorw("activation email dispatch failed", "to", user.Email, "error", err)
		return ErrInternal
	}
	return nil
}

// Activate consumes an activation token and marks the owner activated.
// Every consume failure looks the same to the caller; the link either works
// once or it doesn't.
func (s *authService) Activate(ctx context.Context, tokenValue string) error {
	userID, err := s.tokenRepo.Consume(ctx, tokenValue, models.PurposeActivation)
	if err != nil {
		if isConsumeFailure(err) {
			return ErrInvalidActivationLink
		}
		s.log.Errorw("activate: consume failed", "error", err)
		return ErrInternal
	}

	if err := s.userRepo.Activate(ctx, userID); err != nil {
		s.log.Errorw("activate: update user failed", "user_id", userID.Hex(), "error", err)
		return ErrInternal
	}
	return nil
}

func (s *authService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		s.log.Errorw("resend activation: lookup failed", "error", err)
		return ErrInternal
	}
	if user.IsActivated {
		return ErrAlreadyActivated
	}

	return s.sendActivation(ctx, user)
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable: both paths run a bcrypt comparison
// and both return ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return "", nil, ErrInvalidCredentials
		}
		s.log.Errorw("login: lookup failed", "error", err)
		return "", nil, ErrInternal
	}

	if user.PasswordHash == "" {
		// Google-only account; for password comparison purposes it has no
		// valid password.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActivated {
		return "", nil, ErrNotActivated
	}

	signed, _, err := s.codec.Issue(user.ID.Hex(), s.sessionTTL)
	if err != nil {
		s.log.Errorw("login: token issue failed", "error", err)
		return "", nil, ErrInternal
	}

	if err := s.userRepo.Touch(ctx, user.ID); err != nil {
		s.log.Warnw("login: failed to update last login time", "user_id", user.ID.Hex(), "error", err)
	}

	return signed, user, nil
}

// RequestReset always succeeds from the caller's point of view; whether the
// email exists must not be observable. When it does exist, a reset token is
// created and mailed.
func (s *authService) RequestReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Errorw("request reset: lookup failed", "error", err)
		}
		return nil
	}

	value, err := s.tokenRepo.Create(ctx, user.ID, models.PurposePasswordReset, s.resetTTL)
	if err != nil {
		s.log.Errorw("request reset: token create failed", "error", err)
		return nil
	}

	link := s.frontendURL + "/reset-password/" + value
	if err := s.mail.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		s.log.Errorw("request reset: email dispatch failed", "to", user.Email, "error", err)
	}
	return nil
}

func (s *authService) ConfirmReset(ctx context.Context, tokenValue, newPassword string) error {
	userID, err := s.tokenRepo.Consume(ctx, tokenValue, models.PurposePasswordReset)
	if err != nil {
		if isConsumeFailure(err) {
			return ErrInvalidResetLink
		}
		s.log.Errorw("confirm reset: consume failed", "error", err)
		return ErrInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return ErrInternal
	}

	if err := s.userRepo.SetPasswordHash(ctx, userID, string(hash)); err != nil {
		s.log.Errorw("confirm reset: set password failed", "user_id", userID.Hex(), "error", err)
		return ErrInternal
	}
	return nil
}

// OAuthURL builds the Google authorization URL. The state nonce lives in
// Redis for ten minutes and is deleted the moment the callback redeems it.
func (s *authService) OAuthURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.states.Put(ctx, state, oauthStateTTL); err != nil {
		s.log.Errorw("oauth: state store failed", "error", err)
		return "", ErrInternal
	}
	return s.google.AuthCodeURL(state), nil
}

// CompleteOAuth redeems the state, exchanges the code with Google and signs
// the user in, creating the account on first sign-in. Google accounts carry
// no password hash and are activated immediately, since Google already
// verified the address.
func (s *authService) CompleteOAuth(ctx context.Context, state, code string) (string, error) {
	ok, err := s.states.Take(ctx, state)
	if err != nil {
		s.log.Errorw("oauth: state check failed", "error", err)
		return "", ErrInternal
	}
	if !ok {
		return "", ErrInvalidOAuthState
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.log.Warnw("oauth: exchange failed", "error", err)
		return "", ErrOAuthExchange
	}
	// Only a Google-verified address may claim an account. An unverified
	// one could hijack a pending email signup for the same address.
	if !profile.EmailVerified {
		s.log.Warnw("oauth: unverified email rejected", "email", profile.Email)
		return "", ErrUnverifiedOAuthEmail
	}

	user, err := s.findOrCreateOAuthUser(ctx, profile.Email, profile.Name)
	if err != nil {
		return "", err
	}

	signed, _, err := s.codec.Issue(user.ID.Hex(), s.sessionTTL)
	if err != nil {
		s.log.Errorw("oauth: token issue failed", "error", err)
		return "", ErrInternal
	}

	if err := s.userRepo.Touch(ctx, user.ID); err != nil {
		s.log.Warnw("oauth: failed to update last login time", "user_id", user.ID.Hex(), "error", err)
	}

	return signed, nil
}

func (s *authService) findOrCreateOAuthUser(ctx context.Context, email, name string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		if !user.IsActivated {
			// The address is verified by Google; an earlier unfinished
			// email signup no longer needs its activation link.
			if err := s.userRepo.Activate(ctx, user.ID); err != nil {
				s.log.Errorw("oauth: activate failed", "user_id", user.ID.Hex(), "error", err)
				return nil, ErrInternal
			}
			user.IsActivated = true
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		s.log.Errorw("oauth: lookup failed", "error", err)
		return nil, ErrInternal
	}

	user = &models.User{
		Name:        name,
		Email:       email,
		IsActivated: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// Lost a create race with a concurrent sign-in; the record is
			// there now.
			return s.userRepo.FindByEmail(ctx, email)
		}
		s.log.Errorw("oauth: create user failed", "error", err)
		return nil, ErrInternal
	}
	return user, nil
}

func isConsumeFailure(err error) bool {
	return errors.Is(err, repository.ErrTokenNotFound) ||
		errors.Is(err, repository.ErrWrongPurpose) ||
		errors.Is(err, repository.ErrTokenAlreadyUsed) ||
		errors.Is(err, repository.ErrTokenExpired)
}
