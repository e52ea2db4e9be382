package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Amirbeek/TinyDesk/internal/models"
	"github.com/Amirbeek/TinyDesk/internal/oauth"
	"github.com/Amirbeek/TinyDesk/internal/repository"
)

// fakeUserRepo mirrors the Mongo repo's contract, including the unique
// email index behavior.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by normalized email
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := repository.NormalizeEmail(u.Email)
	if _, ok := r.users[email]; ok {
		return repository.ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID()
	u.Email = email
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[email] = &cp
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[repository.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) SetPasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (r *fakeUserRepo) Activate(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			u.IsActivated = true
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (r *fakeUserRepo) Touch(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			now := time.Now()
			u.LastLoginAt = &now
			return nil
		}
	}
	return repository.ErrUserNotFound
}

// fakeTokenRepo implements the same atomic check-and-set consume as the
// Mongo repo, guarded by a mutex so the concurrency test is meaningful.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.OneTimeToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*models.OneTimeToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, userID primitive.ObjectID, purpose models.TokenPurpose, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[value] = &models.OneTimeToken{
		Value:     value,
		Purpose:   purpose,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
	return value, nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, value string, purpose models.TokenPurpose) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[value]
	if !ok {
		return primitive.NilObjectID, repository.ErrTokenNotFound
	}
	switch {
	case tok.Purpose != purpose:
		return primitive.NilObjectID, repository.ErrWrongPurpose
	case tok.Consumed:
		return primitive.NilObjectID, repository.ErrTokenAlreadyUsed
	case !tok.ExpiresAt.After(time.Now()):
		return primitive.NilObjectID, repository.ErrTokenExpired
	}
	tok.Consumed = true
	// Spending a token retires its siblings, same as the Mongo repo.
	for _, other := range r.tokens {
		if other.UserID == tok.UserID && other.Purpose == purpose {
			other.Consumed = true
		}
	}
	return tok.UserID, nil
}

// expire backdates a token so expiry paths can be tested.
func (r *fakeTokenRepo) expire(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, ok := r.tokens[value]; ok {
		tok.ExpiresAt = time.Now().Add(-time.Minute)
	}
}

type sentMail struct {
	To   string
	Link string
}

type fakeMailer struct {
	mu          sync.Mutex
	activations []sentMail
	resets      []sentMail
	failNext    bool
}

func (m *fakeMailer) SendActivation(_ context.Context, to, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("smtp unavailable")
	}
	m.activations = append(m.activations, sentMail{To: to, Link: link})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("smtp unavailable")
	}
	m.resets = append(m.resets, sentMail{To: to, Link: link})
	return nil
}

func (m *fakeMailer) lastActivation() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activations[len(m.activations)-1]
}

func (m *fakeMailer) lastReset() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[len(m.resets)-1]
}

type fakeProvider struct {
	profile *oauth.Profile
	err     error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, _ string) (*oauth.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]bool
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]bool)}
}

func (s *fakeStateStore) Put(_ context.Context, state string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = true
	return nil
}

func (s *fakeStateStore) Take(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.states[state] {
		return false, nil
	}
	delete(s.states, state)
	return true, nil
}
