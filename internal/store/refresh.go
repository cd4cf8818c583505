package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// RefreshTokens issues and verifies opaque refresh credentials. Only the
// SHA-256 hash of a token is ever stored.
type RefreshTokens struct {
	collection *mongo.Collection
	ttl        time.Duration
	now        func() time.Time
}

func NewRefreshTokens(db *mongo.Database, ttl time.Duration) *RefreshTokens {
	return &RefreshTokens{
		collection: db.Collection("refresh_tokens"),
		ttl:        ttl,
		now:        time.Now,
	}
}

// Create generates a high-entropy token for the user and stores its hash.
// The raw value is returned once and never persisted.
func (r *RefreshTokens) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	raw, err := generateTokenString()
	if err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}

	now := r.now()
	_, err = r.collection.InsertOne(ctx, models.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
		IsActive:  true,
	})
	if err != nil {
		return "", fmt.Errorf("storing refresh token: %w", err)
	}

	return raw, nil
}

// Verify returns the owning user id for a live token, or false. A rotated-out
// or revoked token is indistinguishable from one that never existed.
func (r *RefreshTokens) Verify(ctx context.Context, raw string) (primitive.ObjectID, bool, error) {
	var token models.RefreshToken
	err := r.collection.FindOne(ctx, bson.M{
		"tokenHash": hashToken(raw),
		"isActive":  true,
		"expiresAt": bson.M{"$gt": r.now()},
	}).Decode(&token)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	return token.UserID, true, nil
}

// Revoke deactivates a single token. The record stays behind as an audit
// trail; it is never deleted.
func (r *RefreshTokens) Revoke(ctx context.Context, raw string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"tokenHash": hashToken(raw)},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RevokeAllForSubject deactivates every active token owned by the user.
func (r *RefreshTokens) RevokeAllForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountActiveForSubject reports live tokens for a user.
func (r *RefreshTokens) CountActiveForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"isActive":  true,
		"expiresAt": bson.M{"$gt": r.now()},
	})
}

// CleanupExpired removes expired records; normally the TTL index does this.
func (r *RefreshTokens) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": r.now()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
