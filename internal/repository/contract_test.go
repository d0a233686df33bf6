package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
)

// 以下はPostgreSQL実装とMongoDB実装の両方に対して同じ振る舞いを検証する共通テスト。

func testUserRepository(t *testing.T, repo UserRepository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	user := &model.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	t.Run("FindByEmailで取得できる", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("FindByEmail returned error: %v", err)
		}
		if got == nil || got.ID != user.ID {
			t.Fatalf("FindByEmail = %+v, want ID %q", got, user.ID)
		}
		if got.PasswordHash != "$2a$10$hash" {
			t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "$2a$10$hash")
		}
	})

	t.Run("FindByIDで取得できる", func(t *testing.T) {
		got, err := repo.FindByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("FindByID returned error: %v", err)
		}
		if got == nil || got.Email != "alice@example.com" || got.Name != "Alice" {
			t.Fatalf("FindByID = %+v", got)
		}
	})

	t.Run("存在しないユーザーはnil", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "nobody@example.com")
		if err != nil || got != nil {
			t.Errorf("FindByEmail(unknown) = %+v, %v; want nil, nil", got, err)
		}
		got, err = repo.FindByID(ctx, "not-an-id")
		if err != nil || got != nil {
			t.Errorf("FindByID(malformed) = %+v, %v; want nil, nil", got, err)
		}
	})

	t.Run("重複メールアドレスはErrDuplicateEmail", func(t *testing.T) {
		dup := &model.User{
			Name:         "Alice 2",
			Email:        "alice@example.com",
			PasswordHash: "x",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err := repo.Create(ctx, dup)
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("Create(duplicate) error = %v, want ErrDuplicateEmail", err)
		}
	})

	t.Run("UpdatePasswordHashでハッシュが置き換わる", func(t *testing.T) {
		ok, err := repo.UpdatePasswordHash(ctx, user.ID, "$2a$10$newhash", now.Add(time.Minute))
		if err != nil || !ok {
			t.Fatalf("UpdatePasswordHash = %v, %v; want true, nil", ok, err)
		}
		got, _ := repo.FindByID(ctx, user.ID)
		if got.PasswordHash != "$2a$10$newhash" {
			t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "$2a$10$newhash")
		}
	})

	t.Run("Pingが成功する", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping returned error: %v", err)
		}
	})
}

func testResetEntryRepository(t *testing.T, repo ResetEntryRepository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := &model.ResetEntry{
		Email:     "bob@example.com",
		OTP:       "111111",
		ExpiresAt: now.Add(5 * time.Minute),
		CreatedAt: now,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	t.Run("再発行で上書きされる", func(t *testing.T) {
		second := &model.ResetEntry{
			Email:     "bob@example.com",
			OTP:       "222222",
			ExpiresAt: now.Add(6 * time.Minute),
			CreatedAt: now.Add(time.Minute),
		}
		if err := repo.Upsert(ctx, second); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}
		got, err := repo.FindByEmail(ctx, "bob@example.com")
		if err != nil {
			t.Fatalf("FindByEmail returned error: %v", err)
		}
		if got == nil || got.OTP != "222222" {
			t.Fatalf("FindByEmail = %+v, want OTP 222222", got)
		}
	})

	t.Run("DeleteExpiredは期限切れのみ削除する", func(t *testing.T) {
		expired := &model.ResetEntry{
			Email:     "carol@example.com",
			OTP:       "333333",
			ExpiresAt: now.Add(-time.Minute),
			CreatedAt: now.Add(-6 * time.Minute),
		}
		if err := repo.Upsert(ctx, expired); err != nil {
			t.Fatalf("Upsert returned error: %v", err)
		}

		deleted, err := repo.DeleteExpired(ctx, now)
		if err != nil {
			t.Fatalf("DeleteExpired returned error: %v", err)
		}
		if deleted < 1 {
			t.Errorf("DeleteExpired deleted %d, want >= 1", deleted)
		}
		if got, _ := repo.FindByEmail(ctx, "carol@example.com"); got != nil {
			t.Errorf("expired entry still present: %+v", got)
		}
		if got, _ := repo.FindByEmail(ctx, "bob@example.com"); got == nil {
			t.Error("live entry should not be deleted")
		}
	})

	t.Run("DeleteByEmailで削除できる", func(t *testing.T) {
		if err := repo.DeleteByEmail(ctx, "bob@example.com"); err != nil {
			t.Fatalf("DeleteByEmail returned error: %v", err)
		}
		got, err := repo.FindByEmail(ctx, "bob@example.com")
		if err != nil || got != nil {
			t.Errorf("FindByEmail after delete = %+v, %v; want nil, nil", got, err)
		}
		// 存在しないエントリの削除もエラーにしない
		if err := repo.DeleteByEmail(ctx, "bob@example.com"); err != nil {
			t.Errorf("DeleteByEmail(missing) returned error: %v", err)
		}
	})
}

func testExpenseRepository(t *testing.T, repo ExpenseRepository, ownerA, ownerB string) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := &model.Expense{OwnerID: ownerA, Title: "Coffee", Amount: 4.5, Category: model.DefaultCategory, CreatedAt: base}
	newer := &model.Expense{OwnerID: ownerA, Title: "Rent", Amount: 1200, Category: "Housing", CreatedAt: base.Add(time.Hour)}
	foreign := &model.Expense{OwnerID: ownerB, Title: "Taxi", Amount: 30, Category: "Travel", CreatedAt: base}

	for _, e := range []*model.Expense{older, newer, foreign} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if e.ID == "" {
			t.Fatal("Create should assign an ID")
		}
	}

	t.Run("ListByOwnerは自分の支出のみ新しい順", func(t *testing.T) {
		list, err := repo.ListByOwner(ctx, ownerA)
		if err != nil {
			t.Fatalf("ListByOwner returned error: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("len = %d, want 2", len(list))
		}
		if list[0].ID != newer.ID || list[1].ID != older.ID {
			t.Errorf("order = [%s %s], want [%s %s]", list[0].Title, list[1].Title, newer.Title, older.Title)
		}
		if list[1].Category != model.DefaultCategory {
			t.Errorf("Category = %q, want %q", list[1].Category, model.DefaultCategory)
		}
	})

	t.Run("Updateは部分更新する", func(t *testing.T) {
		amount := 5.0
		got, err := repo.Update(ctx, older.ID, ownerA, model.ExpenseUpdate{Amount: &amount, Category: "Food"})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if got == nil {
			t.Fatal("Update returned nil")
		}
		if got.Title != "Coffee" || got.Amount != 5.0 || got.Category != "Food" || got.OwnerID != ownerA {
			t.Errorf("Update = %+v", got)
		}
	})

	t.Run("他ユーザーの支出は更新も削除もできない", func(t *testing.T) {
		title := "Hijacked"
		got, err := repo.Update(ctx, foreign.ID, ownerA, model.ExpenseUpdate{Title: &title, Category: "X"})
		if err != nil || got != nil {
			t.Errorf("Update(foreign) = %+v, %v; want nil, nil", got, err)
		}
		ok, err := repo.Delete(ctx, foreign.ID, ownerA)
		if err != nil || ok {
			t.Errorf("Delete(foreign) = %v, %v; want false, nil", ok, err)
		}
		list, _ := repo.ListByOwner(ctx, ownerB)
		if len(list) != 1 || list[0].Title != "Taxi" {
			t.Errorf("foreign expense changed: %+v", list)
		}
	})

	t.Run("不正なIDは見つからない扱い", func(t *testing.T) {
		got, err := repo.Update(ctx, "not-an-id", ownerA, model.ExpenseUpdate{Category: "X"})
		if err != nil || got != nil {
			t.Errorf("Update(malformed) = %+v, %v; want nil, nil", got, err)
		}
		ok, err := repo.Delete(ctx, "not-an-id", ownerA)
		if err != nil || ok {
			t.Errorf("Delete(malformed) = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("Deleteで削除できる", func(t *testing.T) {
		ok, err := repo.Delete(ctx, newer.ID, ownerA)
		if err != nil || !ok {
			t.Fatalf("Delete = %v, %v; want true, nil", ok, err)
		}
		ok, err = repo.Delete(ctx, newer.ID, ownerA)
		if err != nil || ok {
			t.Errorf("second Delete = %v, %v; want false, nil", ok, err)
		}
	})
}
