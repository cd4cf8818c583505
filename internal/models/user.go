package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AuthProviderEmail  = "email"
	AuthProviderGoogle = "google"
)

// User represents the application user account. Federated accounts carry no
// password hash.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	FullName      string             `bson:"fullName,omitempty" json:"fullName,omitempty"`
	PasswordHash  string             `bson:"passwordHash,omitempty" json:"-"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
	EmailVerified bool               `bson:"emailVerified" json:"emailVerified"`
	AuthProvider  string             `bson:"authProvider" json:"authProvider"`
	GoogleID      string             `bson:"googleId,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
