package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlacklistEntry marks a revoked access token by jti. A coarse record with
// AllTokens set and no jti covers every token of a user; per-jti lookups do
// not see it (only the refresh-token side of logout-all is complete for
// tokens issued before the record).
type BlacklistEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TokenJTI      string             `bson:"tokenJti,omitempty" json:"tokenJti,omitempty"`
	UserID        primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	AllTokens     bool               `bson:"allTokens,omitempty" json:"allTokens,omitempty"`
	BlacklistedAt time.Time          `bson:"blacklistedAt" json:"blacklistedAt"`
	ExpiresAt     time.Time          `bson:"expiresAt" json:"expiresAt"`
}
