package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProofToken is a single-use, hashed-at-rest credential proving out-of-band
// possession (password reset, email verification). Used flips from false to
// true exactly once; a used or expired token verifies as invalid.
type ProofToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TokenHash string             `bson:"tokenHash" json:"-"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	Used      bool               `bson:"used" json:"used"`
	UsedAt    *time.Time         `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
}
