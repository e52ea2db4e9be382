package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Amirbeek/TinyDesk/internal/models"
)

// testDB connects to the Mongo instance named by TEST_MONGO_URI and hands
// back a throwaway database. Tests are skipped when the variable is unset
// so the suite stays runnable without infrastructure.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping Mongo integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database(fmt.Sprintf("tinydesk_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestUserRepoDuplicateEmail(t *testing.T) {
	repo := NewMongoUserRepo(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Email: "a@x.com", PasswordHash: "h1"}))

	err := repo.Create(ctx, &models.User{Email: "a@x.com", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// Case only differs; the stored form is normalized so the index
	// catches it.
	err = repo.Create(ctx, &models.User{Email: "A@X.COM", PasswordHash: "h3"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepoActivateIsIdempotent(t *testing.T) {
	repo := NewMongoUserRepo(testDB(t))
	ctx := context.Background()

	u := &models.User{Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.Activate(ctx, u.ID))
	require.NoError(t, repo.Activate(ctx, u.ID))

	got, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, got.IsActivated)
}

func TestTokenRepoConsumeOnce(t *testing.T) {
	repo := NewMongoTokenRepo(testDB(t))
	ctx := context.Background()
	userID := primitive.NewObjectID()

	value, err := repo.Create(ctx, userID, models.PurposeActivation, time.Hour)
	require.NoError(t, err)

	got, err := repo.Consume(ctx, value, models.PurposeActivation)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = repo.Consume(ctx, value, models.PurposeActivation)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestTokenRepoConsumeRetiresSiblings(t *testing.T) {
	repo := NewMongoTokenRepo(testDB(t))
	ctx := context.Background()
	userID := primitive.NewObjectID()

	old, err := repo.Create(ctx, userID, models.PurposeActivation, time.Hour)
	require.NoError(t, err)
	fresh, err := repo.Create(ctx, userID, models.PurposeActivation, time.Hour)
	require.NoError(t, err)

	// A reset token for the same user survives, as does another user's
	// activation token.
	reset, err := repo.Create(ctx, userID, models.PurposePasswordReset, time.Hour)
	require.NoError(t, err)
	other, err := repo.Create(ctx, primitive.NewObjectID(), models.PurposeActivation, time.Hour)
	require.NoError(t, err)

	got, err := repo.Consume(ctx, fresh, models.PurposeActivation)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = repo.Consume(ctx, old, models.PurposeActivation)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)

	_, err = repo.Consume(ctx, reset, models.PurposePasswordReset)
	assert.NoError(t, err)
	_, err = repo.Consume(ctx, other, models.PurposeActivation)
	assert.NoError(t, err)
}

func TestTokenRepoConsumeClassification(t *testing.T) {
	repo := NewMongoTokenRepo(testDB(t))
	ctx := context.Background()
	userID := primitive.NewObjectID()

	_, err := repo.Consume(ctx, "missing", models.PurposeActivation)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	value, err := repo.Create(ctx, userID, models.PurposeActivation, time.Hour)
	require.NoError(t, err)
	_, err = repo.Consume(ctx, value, models.PurposePasswordReset)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	expired, err := repo.Create(ctx, userID, models.PurposePasswordReset, -time.Minute)
	require.NoError(t, err)
	_, err = repo.Consume(ctx, expired, models.PurposePasswordReset)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenRepoConcurrentConsume(t *testing.T) {
	repo := NewMongoTokenRepo(testDB(t))
	ctx := context.Background()

	value, err := repo.Create(ctx, primitive.NewObjectID(), models.PurposeActivation, time.Hour)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Consume(ctx, value, models.PurposeActivation)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
		}
	}
	assert.Equal(t, 1, succeeded)
}
