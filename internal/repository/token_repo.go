package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Amirbeek/TinyDesk/internal/models"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrWrongPurpose     = errors.New("token purpose mismatch")
	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrTokenExpired     = errors.New("token expired")
)

const tokenValueBytes = 32

// TokenRepository persists single-use, expiring tokens for the activation
// and password-reset flows. Consume must be atomic with respect to
// concurrent calls on the same value: no matter how many requests replay a
// leaked link, at most one ever succeeds. Consuming a token also retires
// the owner's other outstanding tokens of the same purpose, so at most one
// token per (user, purpose) generation is ever honored.
type TokenRepository interface {
	Create(ctx context.Context, userID primitive.ObjectID, purpose models.TokenPurpose, ttl time.Duration) (string, error)
	Consume(ctx context.Context, value string, purpose models.TokenPurpose) (primitive.ObjectID, error)
}

type mongoTokenRepo struct {
	col *mongo.Collection
}

func NewMongoTokenRepo(db *mongo.Database) TokenRepository {
	col := db.Collection("one_time_tokens")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "value", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Reap stale tokens a day after expiry; expired tokens are
			// already rejected at consume time, this just keeps the
			// collection from growing without bound.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(86400),
		},
	})
	return &mongoTokenRepo{col: col}
}

func (r *mongoTokenRepo) Create(ctx context.Context, userID primitive.ObjectID, purpose models.TokenPurpose, ttl time.Duration) (string, error) {
	buf := make([]byte, tokenValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	now := time.Now().UTC()
	tok := models.OneTimeToken{
		Value:     value,
		Purpose:   purpose,
		UserID:    userID,
		Consumed:  false,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, tok); err != nil {
		return "", err
	}
	return value, nil
}

// Consume marks the token used and returns its owner. The check-and-set is
// a single FindOneAndUpdate so concurrent consumers of the same value race
// on one document update; Mongo guarantees only one of them matches the
// consumed:false filter. When the update misses, a plain read classifies
// which precondition failed.
func (r *mongoTokenRepo) Consume(ctx context.Context, value string, purpose models.TokenPurpose) (primitive.ObjectID, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"value":      value,
		"purpose":    purpose,
		"consumed":   false,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"consumed": true}}

	var tok models.OneTimeToken
	err := r.col.FindOneAndUpdate(ctx, filter, update).Decode(&tok)
	if err == nil {
		// Retire the owner's remaining tokens of this purpose. A resend or
		// repeated reset request mints fresh values; once any of them is
		// spent, the superseded links must stop working too.
		_, err = r.col.UpdateMany(ctx, bson.M{
			"user_id":  tok.UserID,
			"purpose":  purpose,
			"consumed": false,
		}, update)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return tok.UserID, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, err
	}

	return primitive.NilObjectID, r.classifyMiss(ctx, value, purpose, now)
}

func (r *mongoTokenRepo) classifyMiss(ctx context.Context, value string, purpose models.TokenPurpose, now time.Time) error {
	var tok models.OneTimeToken
	err := r.col.FindOne(ctx, bson.M{"value": value}).Decode(&tok)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrTokenNotFound
	}
	if err != nil {
		return err
	}

	switch {
	case tok.Purpose != purpose:
		return ErrWrongPurpose
	case tok.Consumed:
		return ErrTokenAlreadyUsed
	case !tok.ExpiresAt.After(now):
		return ErrTokenExpired
	default:
		// The token became consumable between the update and this read;
		// treat it like a lost race.
		return ErrTokenAlreadyUsed
	}
}
