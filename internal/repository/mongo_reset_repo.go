package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoResetEntryRepo はMongoDBを使用したリセットエントリリポジトリ。
// expiresAtのTTLインデックスによりMongoDB側でも期限切れエントリが削除される。
type MongoResetEntryRepo struct {
	collection *mongo.Collection
}

// NewMongoResetEntryRepo はMongoResetEntryRepoを生成する。
func NewMongoResetEntryRepo(db *mongo.Database) *MongoResetEntryRepo {
	return &MongoResetEntryRepo{collection: db.Collection(ResetEntryCollection)}
}

// Upsert はエントリを作成する。同じメールアドレスのエントリがあれば置き換える。
func (r *MongoResetEntryRepo) Upsert(ctx context.Context, entry *model.ResetEntry) error {
	doc := resetEntryDocument{
		Email:     entry.Email,
		OTP:       entry.OTP,
		ExpiresAt: entry.ExpiresAt,
		CreatedAt: entry.CreatedAt,
	}
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"email": entry.Email},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reset entry: %w", err)
	}
	return nil
}

// FindByEmail はエントリを取得する。見つからない場合はnilを返す。
func (r *MongoResetEntryRepo) FindByEmail(ctx context.Context, email string) (*model.ResetEntry, error) {
	var doc resetEntryDocument
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reset entry: %w", err)
	}
	return doc.toModel(), nil
}

// DeleteByEmail はエントリを削除する。
func (r *MongoResetEntryRepo) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return fmt.Errorf("failed to delete reset entry: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れのエントリを一括削除する。
// TTLモニターの実行間隔（約60秒）より早く掃除したい場合に使う。
func (r *MongoResetEntryRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset entries: %w", err)
	}
	return result.DeletedCount, nil
}

// compile-time interface check
var _ ResetEntryRepository = (*MongoResetEntryRepo)(nil)
