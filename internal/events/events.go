// Package events defines the domain events emitted by the lending service and
// the in-process bus that delivers them to subscribers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type names a domain event.
type Type string

// Event types.
const (
	LoanRequested      Type = "LoanRequested"
	LoanApproved       Type = "LoanApproved"
	LoanRejected       Type = "LoanRejected"
	LoanReturned       Type = "LoanReturned"
	ExtensionRequested Type = "ExtensionRequested"
	ExtensionApproved  Type = "ExtensionApproved"
	ExtensionRejected  Type = "ExtensionRejected"
	FineIssued         Type = "FineIssued"
	FinePaid           Type = "FinePaid"
	FineWaived         Type = "FineWaived"
	LoanOverdue        Type = "LoanOverdue"
	LoanDueSoon        Type = "LoanDueSoon"
)

// Event is something that happened to a loan, addressed to the user it
// concerns.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	UserID     int64     `json:"user_id"`
	LoanID     int64     `json:"loan_id"`
	Payload    []byte    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LoanPayload describes a loan at the time of the event.
type LoanPayload struct {
	Status     string    `json:"status"`
	DueDate    time.Time `json:"due_date"`
	Copies     int       `json:"copies"`
	AdminNotes string    `json:"admin_notes,omitempty"`
}

// ExtensionPayload describes an extension request.
type ExtensionPayload struct {
	ExtensionID int64     `json:"extension_id"`
	Days        int       `json:"days"`
	NewDueDate  time.Time `json:"new_due_date"`
	Notes       string    `json:"notes,omitempty"`
}

// FinePayload describes a fine.
type FinePayload struct {
	FineID   int64  `json:"fine_id"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason,omitempty"`
}

// New builds an event with a fresh ID, encoding payload as JSON.
func New(t Type, userID, loanID int64, payload any, at time.Time) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		LoanID:     loanID,
		Payload:    data,
		OccurredAt: at.UTC(),
	}, nil
}

// NewKeyed builds an event whose ID is derived from key, so the same key always
// yields the same ID. Used for reminders that must be recorded only once.
func NewKeyed(key string, t Type, userID, loanID int64, payload any, at time.Time) (Event, error) {
	e, err := New(t, userID, loanID, payload, at)
	if err != nil {
		return Event{}, err
	}
	e.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("library:"+key)).String()
	return e, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// Save appends the event to the events table.
func Save(ctx context.Context, q store.Querier, e Event) error {
	return store.InsertEvent(ctx, q, record(e))
}

// SaveOnce stores the event unless its ID is already present, and reports
// whether it was stored.
func SaveOnce(ctx context.Context, q store.Querier, e Event) (bool, error) {
	return store.InsertEventOnce(ctx, q, record(e))
}

func record(e Event) store.EventRecord {
	return store.EventRecord{
		ID:         e.ID,
		Type:       string(e.Type),
		UserID:     e.UserID,
		LoanID:     e.LoanID,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt,
	}
}

// FromRecord converts a stored event back into an Event.
func FromRecord(r store.EventRecord) Event {
	return Event{
		ID:         r.ID,
		Type:       Type(r.Type),
		UserID:     r.UserID,
		LoanID:     r.LoanID,
		Payload:    r.Payload,
		OccurredAt: r.OccurredAt,
	}
}
