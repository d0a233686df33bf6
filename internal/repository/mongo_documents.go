package repository

import (
	"time"

	"github.com/hitoshi/wealthio/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MongoDBのコレクション名。既存のデータと互換性のある名前を使う。
const (
	UserCollection       = "users"
	ExpenseCollection    = "expenses"
	ResetEntryCollection = "resettokens"
)

type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Name      string        `bson:"name"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type expenseDocument struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	User     bson.ObjectID `bson:"user"`
	Title    string        `bson:"title"`
	Amount   float64       `bson:"amount"`
	Category string        `bson:"category"`
	Date     time.Time     `bson:"date"`
}

func (d *expenseDocument) toModel() *model.Expense {
	return &model.Expense{
		ID:        d.ID.Hex(),
		OwnerID:   d.User.Hex(),
		Title:     d.Title,
		Amount:    d.Amount,
		Category:  d.Category,
		CreatedAt: d.Date,
	}
}

type resetEntryDocument struct {
	Email     string    `bson:"email"`
	OTP       string    `bson:"otp"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (d *resetEntryDocument) toModel() *model.ResetEntry {
	return &model.ResetEntry{
		Email:     d.Email,
		OTP:       d.OTP,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}
