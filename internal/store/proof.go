package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// PriorPolicy controls what Create does with a subject's earlier tokens.
// Password reset deactivates them (audit trail kept); email verification
// deletes them outright.
type PriorPolicy int

const (
	DeactivatePrior PriorPolicy = iota
	DeletePrior
)

// ProofTokens is a generic single-use, expiring, hashed-at-rest token store.
// Instantiated twice: password reset (30 min TTL, deactivate policy) and
// email verification (24 h TTL, delete policy).
type ProofTokens struct {
	collection *mongo.Collection
	ttl        time.Duration
	policy     PriorPolicy
	now        func() time.Time
}

func NewPasswordResetTokens(db *mongo.Database, ttl time.Duration) *ProofTokens {
	return &ProofTokens{
		collection: db.Collection("password_reset_tokens"),
		ttl:        ttl,
		policy:     DeactivatePrior,
		now:        time.Now,
	}
}

func NewEmailVerificationTokens(db *mongo.Database, ttl time.Duration) *ProofTokens {
	return &ProofTokens{
		collection: db.Collection("email_verifications"),
		ttl:        ttl,
		policy:     DeletePrior,
		now:        time.Now,
	}
}

// Create invalidates the subject's prior tokens per policy, then inserts a
// new one. Returns the raw value; only its hash is persisted.
func (p *ProofTokens) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	switch p.policy {
	case DeletePrior:
		if _, err := p.collection.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
			return "", fmt.Errorf("deleting prior tokens: %w", err)
		}
	default:
		_, err := p.collection.UpdateMany(ctx,
			bson.M{"userId": userID, "isActive": true},
			bson.M{"$set": bson.M{"isActive": false}},
		)
		if err != nil {
			return "", fmt.Errorf("deactivating prior tokens: %w", err)
		}
	}

	raw, err := generateTokenString()
	if err != nil {
		return "", fmt.Errorf("generating proof token: %w", err)
	}

	now := p.now()
	_, err = p.collection.InsertOne(ctx, models.ProofToken{
		TokenHash: hashToken(raw),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(p.ttl),
		IsActive:  true,
		Used:      false,
	})
	if err != nil {
		return "", fmt.Errorf("storing proof token: %w", err)
	}

	return raw, nil
}

// Verify returns the owner of a live, unused, unexpired token. A used or
// expired token is simply invalid; the distinction is not surfaced.
func (p *ProofTokens) Verify(ctx context.Context, raw string) (primitive.ObjectID, string, bool, error) {
	var token models.ProofToken
	err := p.collection.FindOne(ctx, bson.M{
		"tokenHash": hashToken(raw),
		"isActive":  true,
		"used":      false,
		"expiresAt": bson.M{"$gt": p.now()},
	}).Decode(&token)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, "", false, nil
	}
	if err != nil {
		return primitive.NilObjectID, "", false, err
	}
	return token.UserID, token.Email, true, nil
}

// MarkUsed flips used from false to true with a single conditional update.
// Under concurrent callers exactly one sees true; "already used" and "not
// found" collapse into false.
func (p *ProofTokens) MarkUsed(ctx context.Context, raw string) (bool, error) {
	now := p.now()
	res, err := p.collection.UpdateOne(ctx,
		bson.M{
			"tokenHash": hashToken(raw),
			"isActive":  true,
			"used":      false,
		},
		bson.M{"$set": bson.M{"used": true, "usedAt": now}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// InvalidateForSubject applies the prior-token policy without creating a
// successor.
func (p *ProofTokens) InvalidateForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	if p.policy == DeletePrior {
		res, err := p.collection.DeleteMany(ctx, bson.M{"userId": userID})
		if err != nil {
			return 0, err
		}
		return res.DeletedCount, nil
	}

	res, err := p.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CleanupExpired removes expired tokens; normally the TTL index does this.
func (p *ProofTokens) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := p.collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": p.now()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
