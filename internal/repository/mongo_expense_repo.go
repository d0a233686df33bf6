package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/wealthio/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoExpenseRepo はMongoDBを使用した支出リポジトリ。
type MongoExpenseRepo struct {
	collection *mongo.Collection
}

// NewMongoExpenseRepo はMongoExpenseRepoを生成する。
func NewMongoExpenseRepo(db *mongo.Database) *MongoExpenseRepo {
	return &MongoExpenseRepo{collection: db.Collection(ExpenseCollection)}
}

// ownedFilter はIDと所有者の両方で絞り込むフィルタを返す。
// どちらかのIDの形式が不正な場合はokがfalseになる。
func ownedFilter(id, ownerID string) (bson.M, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user": owner}, true
}

// Create は支出を作成する。
func (r *MongoExpenseRepo) Create(ctx context.Context, expense *model.Expense) error {
	owner, err := bson.ObjectIDFromHex(expense.OwnerID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", expense.OwnerID, err)
	}

	doc := expenseDocument{
		ID:       bson.NewObjectID(),
		User:     owner,
		Title:    expense.Title,
		Amount:   expense.Amount,
		Category: expense.Category,
		Date:     expense.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	expense.ID = doc.ID.Hex()
	return nil
}

// ListByOwner は所有者の支出一覧をdate降順で返す。
func (r *MongoExpenseRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Expense, error) {
	expenses := make([]*model.Expense, 0)

	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return expenses, nil
	}

	cursor, err := r.collection.Find(ctx,
		bson.M{"user": owner},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var docs []expenseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	for i := range docs {
		expenses = append(expenses, docs[i].toModel())
	}
	return expenses, nil
}

// Update は所有者の支出を部分更新し、更新後のドキュメントを返す。
func (r *MongoExpenseRepo) Update(ctx context.Context, id, ownerID string, update model.ExpenseUpdate) (*model.Expense, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return nil, nil
	}

	set := bson.M{"category": update.Category}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Amount != nil {
		set["amount"] = *update.Amount
	}

	var doc expenseDocument
	err := r.collection.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return doc.toModel(), nil
}

// Delete は所有者の支出を削除する。
func (r *MongoExpenseRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return false, nil
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// compile-time interface check
var _ ExpenseRepository = (*MongoExpenseRepo)(nil)
