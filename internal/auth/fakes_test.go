package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/googleauth"
	"backend/internal/models"
	"backend/internal/store"
)

// In-memory doubles for the persistent stores. Conditional updates are done
// under a mutex, mirroring the atomicity MongoDB provides.

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, store.ErrDuplicateEmail
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	copied := *user
	f.users[user.ID] = &copied
	return user, nil
}

func (f *fakeUsers) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if email, ok := fields["email"].(string); ok {
		for otherID, other := range f.users {
			if otherID != id && other.Email == email {
				return nil, store.ErrDuplicateEmail
			}
		}
		u.Email = email
	}
	if name, ok := fields["fullName"].(string); ok {
		u.FullName = name
	}
	if hash, ok := fields["passwordHash"].(string); ok {
		u.PasswordHash = hash
	}
	if verified, ok := fields["emailVerified"].(bool); ok {
		u.EmailVerified = verified
	}
	if googleID, ok := fields["googleId"].(string); ok {
		u.GoogleID = googleID
	}
	if active, ok := fields["isActive"].(bool); ok {
		u.IsActive = active
	}
	u.UpdatedAt = time.Now()
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || !u.IsActive {
		return store.ErrUserNotFound
	}
	u.IsActive = false
	return nil
}

type fakeRefreshRecord struct {
	userID    primitive.ObjectID
	expiresAt time.Time
	active    bool
}

type fakeRefreshTokens struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]*fakeRefreshRecord
	ttl    time.Duration
}

func newFakeRefreshTokens() *fakeRefreshTokens {
	return &fakeRefreshTokens{tokens: make(map[string]*fakeRefreshRecord), ttl: 7 * 24 * time.Hour}
}

func (f *fakeRefreshTokens) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	raw := fmt.Sprintf("refresh-%d", f.seq)
	f.tokens[raw] = &fakeRefreshRecord{userID: userID, expiresAt: time.Now().Add(f.ttl), active: true}
	return raw, nil
}

func (f *fakeRefreshTokens) Verify(ctx context.Context, raw string) (primitive.ObjectID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.tokens[raw]
	if !ok || !rec.active || time.Now().After(rec.expiresAt) {
		return primitive.NilObjectID, false, nil
	}
	return rec.userID, true, nil
}

func (f *fakeRefreshTokens) Revoke(ctx context.Context, raw string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.tokens[raw]
	if !ok || !rec.active {
		return false, nil
	}
	rec.active = false
	return true, nil
}

func (f *fakeRefreshTokens) RevokeAllForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, rec := range f.tokens {
		if rec.userID == userID && rec.active {
			rec.active = false
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshTokens) CountActiveForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, rec := range f.tokens {
		if rec.userID == userID && rec.active && time.Now().Before(rec.expiresAt) {
			n++
		}
	}
	return n, nil
}

type fakeProofRecord struct {
	userID primitive.ObjectID
	email  string
	active bool
	used   bool
}

type fakeProofTokens struct {
	mu         sync.Mutex
	seq        int
	tokens     map[string]*fakeProofRecord
	deletePrio bool
}

func newFakeProofTokens(deletePrior bool) *fakeProofTokens {
	return &fakeProofTokens{tokens: make(map[string]*fakeProofRecord), deletePrio: deletePrior}
}

func (f *fakeProofTokens) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for raw, rec := range f.tokens {
		if rec.userID != userID {
			continue
		}
		if f.deletePrio {
			delete(f.tokens, raw)
		} else {
			rec.active = false
		}
	}
	f.seq++
	raw := fmt.Sprintf("proof-%d", f.seq)
	f.tokens[raw] = &fakeProofRecord{userID: userID, email: email, active: true}
	return raw, nil
}

func (f *fakeProofTokens) Verify(ctx context.Context, raw string) (primitive.ObjectID, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.tokens[raw]
	if !ok || !rec.active || rec.used {
		return primitive.NilObjectID, "", false, nil
	}
	return rec.userID, rec.email, true, nil
}

func (f *fakeProofTokens) InvalidateForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for raw, rec := range f.tokens {
		if rec.userID != userID {
			continue
		}
		if f.deletePrio {
			delete(f.tokens, raw)
		} else if rec.active {
			rec.active = false
		}
		n++
	}
	return n, nil
}

func (f *fakeProofTokens) MarkUsed(ctx context.Context, raw string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.tokens[raw]
	if !ok || !rec.active || rec.used {
		return false, nil
	}
	rec.used = true
	return true, nil
}

type fakeRevocation struct {
	mu       sync.Mutex
	jtis     map[string]bool
	subjects map[primitive.ObjectID]bool
}

func newFakeRevocation() *fakeRevocation {
	return &fakeRevocation{jtis: make(map[string]bool), subjects: make(map[primitive.ObjectID]bool)}
}

func (f *fakeRevocation) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jtis[jti] = true
	return nil
}

func (f *fakeRevocation) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jtis[jti], nil
}

func (f *fakeRevocation) BlacklistAllForSubject(ctx context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects[userID] = true
	return nil
}

type sentMail struct {
	to    string
	token string
	kind  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (f *fakeNotifier) SendPasswordReset(ctx context.Context, to, rawToken string) error {
	return f.record("reset", to, rawToken)
}

func (f *fakeNotifier) SendEmailVerification(ctx context.Context, to, rawToken string) error {
	return f.record("verify", to, rawToken)
}

func (f *fakeNotifier) record(kind, to, rawToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp unreachable")
	}
	f.sent = append(f.sent, sentMail{to: to, token: rawToken, kind: kind})
	return nil
}

func (f *fakeNotifier) lastToken(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i].token
		}
	}
	return ""
}

type fakeFederated struct {
	configured bool
	identity   *googleauth.Identity
	err        error
}

func (f *fakeFederated) Configured() bool { return f.configured }

func (f *fakeFederated) Verify(ctx context.Context, credential string) (*googleauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}
