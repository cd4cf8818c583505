package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_index"),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}},
			Options: options.Index().SetName("isActive_index"),
		},
	}

	log.Println("EnsureUserIndexes: creating user indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureBlacklistIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("blacklisted_tokens").Indexes()

	models := []mongo.IndexModel{
		{
			// TTL: Mongo removes an entry once its paired token would have
			// expired anyway.
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
		{
			// Sparse: coarse all-tokens records carry no jti.
			Keys: bson.D{{Key: "tokenJti", Value: 1}},
			Options: options.Index().
				SetName("tokenJti_unique").
				SetUnique(true).
				SetSparse(true),
		},
	}

	log.Println("EnsureBlacklistIndexes: creating blacklist indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureBlacklistIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("refresh_tokens").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().
				SetName("tokenHash_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	}

	log.Println("EnsureRefreshTokenIndexes: creating refresh token indexes")
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Println("EnsureRefreshTokenIndexes: index error:", err)
		return err
	}
	return nil
}

// EnsureProofTokenIndexes covers both single-use proof collections
// (password_reset_tokens, email_verifications); they share one shape.
func EnsureProofTokenIndexes(db *mongo.Database, collection string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(collection).Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().
				SetName("tokenHash_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
	}

	log.Printf("EnsureProofTokenIndexes: creating %s indexes", collection)
	_, err := indexes.CreateMany(ctx, models)
	if err != nil {
		log.Printf("EnsureProofTokenIndexes: %s index error: %v", collection, err)
		return err
	}
	return nil
}
