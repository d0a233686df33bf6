package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
// emailの一意性はdatabase.EnsureMongoIndexesで作成する一意インデックスで保証する。
type MongoUserRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{
		client:     db.Client(),
		collection: db.Collection(UserCollection),
	}
}

// FindByID は指定IDのユーザーを取得する。IDの形式が不正な場合もnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmail はメールアドレスでユーザーを取得する。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}

// Create はユーザーを作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	oid := bson.NewObjectID()
	if user.ID != "" {
		parsed, err := bson.ObjectIDFromHex(user.ID)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", user.ID, err)
		}
		oid = parsed
	}

	doc := userDocument{
		ID:        oid,
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = oid.Hex()
	return nil
}

// UpdatePasswordHash はユーザーのパスワードハッシュを置き換える。
func (r *MongoUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"password": passwordHash, "updatedAt": updatedAt}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update password hash: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// Ping はMongoDBへの疎通を確認する。
func (r *MongoUserRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
