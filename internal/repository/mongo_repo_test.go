package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hitoshi/wealthio/internal/database"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// setupMongo はTEST_MONGO_URIのMongoDBにテストごとの使い捨てデータベースを用意する。
// 未設定または接続できない場合はスキップする。
func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI が未設定のためスキップ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("wealthio_test_%d", time.Now().UnixNano())
	db, err := database.OpenMongo(ctx, uri, dbName)
	if err != nil {
		t.Skipf("テスト用MongoDBに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	if err := database.EnsureMongoIndexes(ctx, db); err != nil {
		t.Fatalf("インデックス作成に失敗: %v", err)
	}
	return db
}

func TestMongoUserRepo(t *testing.T) {
	db := setupMongo(t)
	testUserRepository(t, NewMongoUserRepo(db))
}

func TestMongoResetEntryRepo(t *testing.T) {
	db := setupMongo(t)
	testResetEntryRepository(t, NewMongoResetEntryRepo(db))
}

func TestMongoExpenseRepo(t *testing.T) {
	db := setupMongo(t)
	testExpenseRepository(t, NewMongoExpenseRepo(db), bson.NewObjectID().Hex(), bson.NewObjectID().Hex())
}

func TestMongoExpenseRepo_ListByMalformedOwner_ReturnsEmpty(t *testing.T) {
	db := setupMongo(t)
	repo := NewMongoExpenseRepo(db)

	list, err := repo.ListByOwner(context.Background(), "not-an-object-id")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("len = %d, want 0", len(list))
	}
}

func TestOwnedFilter(t *testing.T) {
	id := bson.NewObjectID()
	owner := bson.NewObjectID()

	filter, ok := ownedFilter(id.Hex(), owner.Hex())
	if !ok {
		t.Fatal("ownedFilter should accept valid ids")
	}
	if filter["_id"] != id || filter["user"] != owner {
		t.Errorf("filter = %v", filter)
	}

	if _, ok := ownedFilter("zzz", owner.Hex()); ok {
		t.Error("ownedFilter should reject malformed id")
	}
	if _, ok := ownedFilter(id.Hex(), "zzz"); ok {
		t.Error("ownedFilter should reject malformed owner")
	}
}
