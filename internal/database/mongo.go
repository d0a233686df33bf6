package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoDBのコレクション名。repositoryパッケージの定義と一致させる。
const (
	mongoUserCollection       = "users"
	mongoExpenseCollection    = "expenses"
	mongoResetEntryCollection = "resettokens"
)

// OpenMongo はMongoDBに接続し、疎通確認したうえで指定データベースを返す。
// 返されたDatabaseのClient().Disconnectで接続を閉じること。
func OpenMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(dbName), nil
}

// EnsureMongoIndexes はアプリケーションが前提とするインデックスを作成する。
// 既存のインデックスと同一定義であれば何もしない。
//   - users.email: 一意
//   - resettokens.email: 一意（メールアドレスごとに1件）
//   - resettokens.expiresAt: TTL（期限到達で自動削除）
//   - expenses.user + date: 一覧取得用
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(mongoUserCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	if _, err := db.Collection(mongoResetEntryCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}); err != nil {
		return fmt.Errorf("failed to create reset entry indexes: %w", err)
	}

	if _, err := db.Collection(mongoExpenseCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create expenses index: %w", err)
	}

	return nil
}
