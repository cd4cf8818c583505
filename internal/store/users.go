package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// Users is the MongoDB user repository. Email uniqueness is enforced by the
// unique index; duplicate inserts surface as ErrDuplicateEmail.
type Users struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{
		collection: db.Collection("users"),
		now:        time.Now,
	}
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.collection.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := u.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := u.now()
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := u.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

// Update applies a partial field set and returns the updated document.
func (u *Users) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	fields["updatedAt"] = u.now()
	if email, ok := fields["email"].(string); ok {
		fields["email"] = normalizeEmail(email)
	}

	var user models.User
	err := u.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &user, nil
}

// SoftDelete deactivates the account; the record stays behind.
func (u *Users) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := u.collection.UpdateOne(ctx,
		bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": u.now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
