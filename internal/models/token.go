package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenPurpose says which state transition a one-time token authorizes.
type TokenPurpose string

const (
	PurposeActivation    TokenPurpose = "activation"
	PurposePasswordReset TokenPurpose = "password_reset"
)

// OneTimeToken is a single-use, expiring token mailed to the user as part
// of the activation and password-reset flows. Consumed flips true exactly
// once; a consumed or expired token is never accepted again.
type OneTimeToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Value     string             `bson:"value" json:"-"`
	Purpose   TokenPurpose       `bson:"purpose" json:"-"`
	UserID    primitive.ObjectID `bson:"user_id" json:"-"`
	Consumed  bool               `bson:"consumed" json:"-"`
	ExpiresAt time.Time          `bson:"expires_at" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"-"`
}
