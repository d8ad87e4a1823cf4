package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/redmonkez12/tours-api/internal/database"
)

func toBSON(t require.TestingT, doc *database.UserDocument) bson.D {
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func sampleDocument() *database.UserDocument {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &database.UserDocument{
		ID:           uuid.New().String(),
		Name:         "Jonas",
		Email:        "jonas@example.com",
		Photo:        DefaultPhoto,
		Role:         string(RoleAdmin),
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &User{Name: "Jonas", Email: "Jonas@Example.com", PasswordHash: "hash"}
		require.NoError(mt, repo.Create(context.Background(), u))
		assert.NotEqual(mt, uuid.Nil, u.ID)
		assert.Equal(mt, "jonas@example.com", u.Email)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: natours.users index: email_unique",
		}))

		err := repo.Create(context.Background(), &User{Name: "Jonas", Email: "jonas@example.com"})
		assert.ErrorIs(mt, err, ErrDuplicateEmail)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		doc := sampleDocument()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toBSON(mt, doc)))

		got, err := repo.GetByEmail(context.Background(), "JONAS@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, doc.ID, got.ID.String())
		assert.Equal(mt, RoleAdmin, got.Role)
		assert.True(mt, got.Active)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("get by reset fingerprint", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		doc := sampleDocument()
		fp := "abc123"
		expires := doc.CreatedAt.Add(10 * time.Minute)
		doc.PasswordResetToken = &fp
		doc.PasswordResetExpires = &expires
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toBSON(mt, doc)))

		got, err := repo.GetByResetFingerprint(context.Background(), fp, doc.CreatedAt)
		require.NoError(mt, err)
		require.NotNil(mt, got.ResetTokenFingerprint)
		assert.Equal(mt, fp, *got.ResetTokenFingerprint)
		require.NotNil(mt, got.ResetTokenExpiresAt)
		assert.True(mt, got.ResetTokenExpiresAt.Equal(expires))
	})

	mt.Run("update password", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.UpdatePassword(context.Background(), uuid.New(), "new-hash", time.Now())
		assert.NoError(mt, err)
	})

	mt.Run("update on missing user", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.SetPasswordReset(context.Background(), uuid.New(), "fp", time.Now())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("set role returns updated document", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		doc := sampleDocument()
		doc.Role = string(RoleGuide)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: toBSON(mt, doc)},
		))

		id, err := uuid.Parse(doc.ID)
		require.NoError(mt, err)
		got, err := repo.SetRole(context.Background(), id, RoleGuide)
		require.NoError(mt, err)
		assert.Equal(mt, RoleGuide, got.Role)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		a, b := sampleDocument(), sampleDocument()
		b.Email = "other@example.com"
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toBSON(mt, a), toBSON(mt, b)))

		users, err := repo.List(context.Background(), 0, 10)
		require.NoError(mt, err)
		require.Len(mt, users, 2)
		assert.Equal(mt, "other@example.com", users[1].Email)
	})

	mt.Run("delete all", func(mt *mtest.T) {
		repo := NewMongoRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}))

		n, err := repo.DeleteAll(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), n)
	})
}
