package store

import (
	"context"
	"database/sql"
	"slices"
	"testing"

	"github.com/dukerupert/flock/internal/database"
	"github.com/dukerupert/flock/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createMember(t *testing.T, ms *MemberStore, first, last, phoneNumber, status string) *model.Member {
	t.Helper()
	m, err := ms.Create(context.Background(), model.MemberInput{
		FirstName: first,
		LastName:  last,
		Phone:     phoneNumber,
		Status:    status,
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestUniqueIDs(t *testing.T) {
	got := UniqueIDs([]string{" a", "b", "", "a", "  ", "c ", "b"})
	want := []string{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("UniqueIDs = %q, want %q", got, want)
	}
}
