package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EventRecord is a stored domain event.
type EventRecord struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	LoanID     int64     `json:"loan_id,omitempty"`
	Payload    []byte    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// InsertEvent appends an event to the audit log.
func InsertEvent(ctx context.Context, q Querier, e EventRecord) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO events (id, type, user_id, loan_id, payload, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, nullID(e.UserID), nullID(e.LoanID), string(e.Payload), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("recording event %s: %w", e.Type, err)
	}
	return nil
}

// InsertEventOnce appends an event unless one with the same ID is already
// stored. It reports whether the event was new.
func InsertEventOnce(ctx context.Context, q Querier, e EventRecord) (bool, error) {
	result, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO events (id, type, user_id, loan_id, payload, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, nullID(e.UserID), nullID(e.LoanID), string(e.Payload), e.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("recording event %s: %w", e.Type, err)
	}
	return affected(result, "recording event")
}

// ListEvents returns the events of a loan in the order they happened. A zero
// loanID lists every event.
func ListEvents(ctx context.Context, q Querier, loanID int64) ([]EventRecord, error) {
	query := `SELECT id, type, user_id, loan_id, payload, occurred_at FROM events`
	var args []any
	if loanID > 0 {
		query += ` WHERE loan_id = ?`
		args = append(args, loanID)
	}
	query += ` ORDER BY occurred_at, rowid`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var e EventRecord
		var userID, loan sql.NullInt64
		var payload string
		if err := rows.Scan(&e.ID, &e.Type, &userID, &loan, &payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.UserID = userID.Int64
		e.LoanID = loan.Int64
		e.Payload = []byte(payload)
		records = append(records, e)
	}
	return records, rows.Err()
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
