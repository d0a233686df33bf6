package app

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/hitoshi/wealthio/internal/model"
)

type mockUserCreator struct {
	createUserFn func(ctx context.Context, name, email, password string) (*model.User, error)
	calls        int
}

func (m *mockUserCreator) CreateUser(ctx context.Context, name, email, password string) (*model.User, error) {
	m.calls++
	if m.createUserFn != nil {
		return m.createUserFn(ctx, name, email, password)
	}
	return &model.User{ID: "user-1", Name: name, Email: email}, nil
}

func TestRunAddUser_PasswordFromFlag(t *testing.T) {
	var gotName, gotEmail, gotPassword string
	creator := &mockUserCreator{
		createUserFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			gotName, gotEmail, gotPassword = name, email, password
			return &model.User{ID: "user-42", Name: name, Email: email}, nil
		},
	}

	var stdout, stderr bytes.Buffer
	err := runAddUser(context.Background(), creator,
		[]string{"-name", "Alice", "-email", "alice@example.com", "-password", "secret1"},
		strings.NewReader(""), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotName != "Alice" || gotEmail != "alice@example.com" || gotPassword != "secret1" {
		t.Errorf("CreateUser received (%q, %q, %q)", gotName, gotEmail, gotPassword)
	}
	if !strings.Contains(stdout.String(), "user-42") {
		t.Errorf("stdout should report the new user ID, got %q", stdout.String())
	}
}

func TestRunAddUser_PasswordFromStdin(t *testing.T) {
	var gotPassword string
	creator := &mockUserCreator{
		createUserFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			gotPassword = password
			return &model.User{ID: "user-1", Email: email}, nil
		},
	}

	var stdout, stderr bytes.Buffer
	err := runAddUser(context.Background(), creator,
		[]string{"-name", "Bob", "-email", "bob@example.com"},
		strings.NewReader("piped-secret\n"), &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPassword != "piped-secret" {
		t.Errorf("password = %q, want %q", gotPassword, "piped-secret")
	}
	if !strings.HasPrefix(stdout.String(), "Password: ") {
		t.Errorf("stdout should start with prompt, got %q", stdout.String())
	}
}

func TestRunAddUser_MissingFlags(t *testing.T) {
	creator := &mockUserCreator{}

	var stdout, stderr bytes.Buffer
	err := runAddUser(context.Background(), creator, []string{"-name", "Alice"},
		strings.NewReader(""), &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for missing email")
	}
	if creator.calls != 0 {
		t.Errorf("CreateUser should not be called, got %d calls", creator.calls)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Errorf("usage should be printed, got %q", stdout.String())
	}
}

func TestRunAddUser_EmptyOrShortPassword(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
	}{
		{"空のパスワード", "   \n"},
		{"短いパスワード", "abc\n"},
		{"入力なし", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &mockUserCreator{}

			var stdout, stderr bytes.Buffer
			err := runAddUser(context.Background(), creator,
				[]string{"-name", "Alice", "-email", "alice@example.com"},
				strings.NewReader(tt.stdin), &stdout, &stderr)
			if err == nil {
				t.Fatal("expected error")
			}
			if creator.calls != 0 {
				t.Errorf("CreateUser should not be called, got %d calls", creator.calls)
			}
		})
	}
}

func TestRunAddUser_UserExists(t *testing.T) {
	creator := &mockUserCreator{
		createUserFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			return nil, model.NewUserExistsError()
		},
	}

	var stdout, stderr bytes.Buffer
	err := runAddUser(context.Background(), creator,
		[]string{"-name", "Alice", "-email", "alice@example.com", "-password", "secret1"},
		strings.NewReader(""), &stdout, &stderr)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserExists {
		t.Errorf("err = %v, want wrapped USER_EXISTS", err)
	}
}

func TestRunAddUser_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := runAddUser(context.Background(), &mockUserCreator{}, []string{"-h"},
		strings.NewReader(""), &stdout, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("err = %v, want flag.ErrHelp", err)
	}
}
