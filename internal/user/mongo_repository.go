package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/tours-api/internal/database"
)

// MongoRepository stores users in a MongoDB collection.
// Call database.EnsureUserIndexes once at startup so the unique email index exists.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: time.Now}
}

func (r *MongoRepository) Create(ctx context.Context, u *User) error {
	prepareNew(u, r.now().UTC())

	if _, err := r.coll.InsertOne(ctx, toDocument(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String(), "active": true})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email), "active": true})
}

func (r *MongoRepository) GetByResetFingerprint(ctx context.Context, fingerprint string, now time.Time) (*User, error) {
	return r.findOne(ctx, bson.M{
		"passwordResetToken":   fingerprint,
		"passwordResetExpires": bson.M{"$gt": now.UTC()},
		"active":               true,
	})
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"password":          passwordHash,
			"passwordChangedAt": changedAt.UTC(),
			"updatedAt":         r.now().UTC(),
		},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
}

func (r *MongoRepository) SetPasswordReset(ctx context.Context, id uuid.UUID, fingerprint string, expiresAt time.Time) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{
			"passwordResetToken":   fingerprint,
			"passwordResetExpires": expiresAt.UTC(),
			"updatedAt":            r.now().UTC(),
		},
	})
}

func (r *MongoRepository) ClearPasswordReset(ctx context.Context, id uuid.UUID) error {
	return r.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"updatedAt": r.now().UTC()},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) (*User, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{
		"$set": bson.M{
			"name":      name,
			"email":     NormalizeEmail(email),
			"updatedAt": r.now().UTC(),
		},
	})
}

func (r *MongoRepository) SetRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{
		"$set": bson.M{"role": string(role), "updatedAt": r.now().UTC()},
	})
}

func (r *MongoRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.updateOne(ctx, id, bson.M{
		"$set": bson.M{"active": false, "updatedAt": r.now().UTC()},
	})
}

func (r *MongoRepository) List(ctx context.Context, offset, limit int) ([]*User, error) {
	offset = max(offset, 0)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cur.Close(ctx)

	out := []*User{}
	for cur.Next(ctx) {
		var doc database.UserDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		u, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc database.UserDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return fromDocument(&doc)
}

func (r *MongoRepository) updateOne(ctx context.Context, id uuid.UUID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String(), "active": true}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, id uuid.UUID, update bson.M) (*User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc database.UserDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id.String(), "active": true}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return fromDocument(&doc)
}

func toDocument(u *User) *database.UserDocument {
	return &database.UserDocument{
		ID:                   u.ID.String(),
		Name:                 u.Name,
		Email:                u.Email,
		Photo:                u.Photo,
		Role:                 string(u.Role),
		PasswordHash:         u.PasswordHash,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.ResetTokenFingerprint,
		PasswordResetExpires: u.ResetTokenExpiresAt,
		Active:               u.Active,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func fromDocument(doc *database.UserDocument) (*User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", doc.ID, err)
	}
	return &User{
		ID:                    id,
		Name:                  doc.Name,
		Email:                 doc.Email,
		Photo:                 doc.Photo,
		Role:                  Role(doc.Role),
		PasswordHash:          doc.PasswordHash,
		PasswordChangedAt:     doc.PasswordChangedAt,
		ResetTokenFingerprint: doc.PasswordResetToken,
		ResetTokenExpiresAt:   doc.PasswordResetExpires,
		Active:                doc.Active,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}, nil
}
