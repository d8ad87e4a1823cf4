package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the Mongo collection holding user documents.
const UsersCollection = "users"

// UserDocument is the stored shape of a user in MongoDB.
type UserDocument struct {
	ID                   string     `bson:"_id"`
	Name                 string     `bson:"name"`
	Email                string     `bson:"email"`
	Photo                string     `bson:"photo"`
	Role                 string     `bson:"role"`
	PasswordHash         string     `bson:"password"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   *string    `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty"`
	Active               bool       `bson:"active"`
	CreatedAt            time.Time  `bson:"createdAt"`
	UpdatedAt            time.Time  `bson:"updatedAt"`
}

// ConnectMongo connects to uri and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client, nil
}

// EnsureUserIndexes creates the unique email index and the reset token lookup index.
func EnsureUserIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("password_reset_token_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}
