package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/db"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

func TestNotifications(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := mustUser(t, database, "alice")
	bob := mustUser(t, database, "bob")
	now := time.Now().UTC()

	if err := CreateNotification(ctx, database, alice.ID, "evt-1", "Loan 1 approved", now); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	// Same event again is ignored.
	if err := CreateNotification(ctx, database, alice.ID, "evt-1", "Loan 1 approved", now); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	CreateNotification(ctx, database, alice.ID, "evt-2", "Loan 1 due soon", now.Add(time.Second))

	notes, err := ListNotifications(ctx, database, alice.ID, false)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notes))
	}
	if notes[0].EventID != "evt-2" {
		t.Errorf("expected newest first, got %q", notes[0].EventID)
	}

	if err := MarkNotificationRead(ctx, database, notes[0].ID, bob.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected other user's notification to be not found, got %v", err)
	}
	if err := MarkNotificationRead(ctx, database, notes[0].ID, alice.ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}

	unread, _ := ListNotifications(ctx, database, alice.ID, true)
	if len(unread) != 1 || unread[0].EventID != "evt-1" {
		t.Errorf("expected only evt-1 unread, got %+v", unread)
	}
}

func TestEventsLog(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	InsertEvent(ctx, database, EventRecord{ID: "a", Type: "LoanCreated", UserID: 1, LoanID: 7, Payload: []byte(`{}`), OccurredAt: now})
	InsertEvent(ctx, database, EventRecord{ID: "b", Type: "LoanApproved", UserID: 1, LoanID: 7, Payload: []byte(`{}`), OccurredAt: now.Add(time.Second)})
	InsertEvent(ctx, database, EventRecord{ID: "c", Type: "LoanCreated", UserID: 2, LoanID: 8, Payload: []byte(`{}`), OccurredAt: now})

	events, err := ListEvents(ctx, database, 7)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].Type != "LoanCreated" || events[1].Type != "LoanApproved" {
		t.Errorf("unexpected events: %+v", events)
	}

	all, _ := ListEvents(ctx, database, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 events, got %d", len(all))
	}
}
