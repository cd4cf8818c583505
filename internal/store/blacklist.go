// Package store contains the MongoDB-backed credential stores. They are the
// only components touching durable state; exactly-once behavior rests on
// Mongo's atomic conditional updates, not in-process locking.
package store

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

const (
	blacklistCacheMaxSize = 1000
	blacklistCacheEvict   = 100

	// Coarse subject-wide records must outlive the longest possible token.
	allTokensLifetime = 30 * 24 * time.Hour
)

// Blacklist persists revoked-token markers and keeps a bounded in-memory
// fast path. The cache is private per-instance state, never a package
// global, so tests can construct isolated instances.
type Blacklist struct {
	collection *mongo.Collection

	mu    sync.Mutex
	cache map[string]struct{}
	// Insertion order for eviction. Not an LRU: when full, the ~100
	// earliest-inserted jtis are dropped regardless of recency.
	order []string

	now func() time.Time
}

func NewBlacklist(db *mongo.Database) *Blacklist {
	return &Blacklist{
		collection: db.Collection("blacklisted_tokens"),
		cache:      make(map[string]struct{}),
		now:        time.Now,
	}
}

// Blacklist upserts a revocation entry for the jti and caches it. The cache
// insert happens even when the persistent write fails, so the revocation
// takes effect immediately on this instance; durability is best-effort.
func (b *Blacklist) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := b.collection.UpdateOne(ctx,
		bson.M{"tokenJti": jti},
		bson.M{"$set": bson.M{
			"tokenJti":      jti,
			"blacklistedAt": b.now(),
			"expiresAt":     expiresAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Println("[AUTH] [ERROR] blacklist persist failed, kept in cache:", err)
	}

	b.cacheAdd(jti)
	return nil
}

// IsBlacklisted checks the cache first; on a miss it queries the store and
// backfills the cache on a hit.
func (b *Blacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if b.cacheHas(jti) {
		return true, nil
	}

	err := b.collection.FindOne(ctx, bson.M{"tokenJti": jti}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	b.cacheAdd(jti)
	return true, nil
}

// BlacklistAllForSubject writes one coarse record covering the maximum token
// lifetime. It does not enumerate previously issued jtis, so per-jti
// verification will not see it; callers pair it with refresh-token
// revocation.
func (b *Blacklist) BlacklistAllForSubject(ctx context.Context, userID primitive.ObjectID) error {
	now := b.now()
	_, err := b.collection.InsertOne(ctx, models.BlacklistEntry{
		UserID:        userID,
		AllTokens:     true,
		BlacklistedAt: now,
		ExpiresAt:     now.Add(allTokensLifetime),
	})
	return err
}

// CleanupExpired removes entries past their expiry. The TTL index normally
// handles this; the sweep exists for stores without TTL support enabled.
func (b *Blacklist) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := b.collection.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": b.now()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (b *Blacklist) cacheAdd(jti string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.cache[jti]; ok {
		return
	}
	b.cache[jti] = struct{}{}
	b.order = append(b.order, jti)

	if len(b.cache) > blacklistCacheMaxSize {
		evicted := b.order[:blacklistCacheEvict]
		b.order = b.order[blacklistCacheEvict:]
		for _, old := range evicted {
			delete(b.cache, old)
		}
	}
}

func (b *Blacklist) cacheHas(jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.cache[jti]
	return ok
}
