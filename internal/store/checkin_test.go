package store

import (
	"context"
	"testing"

	"github.com/dukerupert/flock/internal/model"
)

func TestCheckinCreateAndMarkSent(t *testing.T) {
	cs := NewCheckinStore(openTestDB(t))
	ctx := context.Background()

	c, err := cs.Create(ctx, "Lydia", "555-123-4567", model.ReasonSick, "pray for healing", "2024-05-05")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == 0 || c.LivestreamSent || c.LivestreamSentAt != nil {
		t.Errorf("created = %+v", c)
	}

	if err := cs.MarkLivestreamSent(ctx, c.ID); err != nil {
		t.Fatalf("MarkLivestreamSent: %v", err)
	}
	got, err := cs.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.LivestreamSent || got.LivestreamSentAt == nil {
		t.Errorf("after mark = %+v, want livestream sent", got)
	}
}

func TestCheckinRejectsUnknownReason(t *testing.T) {
	cs := NewCheckinStore(openTestDB(t))

	if _, err := cs.Create(context.Background(), "Lydia", "5551234567", "bored", "", "2024-05-05"); err == nil {
		t.Fatal("expected check constraint error, got nil")
	}
}

func TestCheckinListRangeAndPhone(t *testing.T) {
	cs := NewCheckinStore(openTestDB(t))
	ctx := context.Background()

	for _, c := range []struct {
		name, phone, date string
	}{
		{"Lydia", "(555) 123-4567", "2024-05-05"},
		{"Lydia", "+1 555 123 4567", "2024-05-12"},
		{"Dorcas", "5559990000", "2024-05-12"},
		{"Lydia", "5551234567", "2024-06-02"},
	} {
		if _, err := cs.Create(ctx, c.name, c.phone, model.ReasonOther, "", c.date); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	inMay, err := cs.ListRange(ctx, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(inMay) != 3 {
		t.Fatalf("May checkins = %d, want 3", len(inMay))
	}
	if inMay[0].ServiceDate != "2024-05-12" {
		t.Errorf("first = %s, want newest service date first", inMay[0].ServiceDate)
	}

	lydia, err := cs.ListByPhone(ctx, "555-123-4567", "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("ListByPhone: %v", err)
	}
	if len(lydia) != 2 {
		t.Errorf("Lydia checkins = %d, want 2", len(lydia))
	}
}
