package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ledger-gateway/internal/domain"
)

func TestMapWriteError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrUserNotFound},
		{name: "email", err: &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}, want: domain.ErrEmailTaken},
		{name: "username", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_username_key"}), want: domain.ErrUsernameTaken},
		{name: "other", err: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapWriteError(tt.err); !errors.Is(got, tt.want) || (tt.want == nil && got != nil) {
				t.Fatalf("mapWriteError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`a_b%c\`); got != `a\_b\%c\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestIsUUID(t *testing.T) {
	if !isUUID("6f1c1b9e-3b1a-4a7e-9a4c-2d2f0c1e5b7a") {
		t.Fatal("valid uuid rejected")
	}
	if isUUID("not-a-uuid") {
		t.Fatal("invalid uuid accepted")
	}
}
