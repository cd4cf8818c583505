package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken stores only the SHA-256 hash of the opaque value handed to
// the client. Rotation flips IsActive instead of deleting, so a consumed
// token leaves an audit record but is invisible to lookups.
type RefreshToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	TokenHash string             `bson:"tokenHash" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
}
