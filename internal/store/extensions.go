package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

const extensionColumns = `id, loan_id, days, reason, current_due_date, new_due_date, status, notes, created_at, resolved_at`

// InsertExtension stores a pending extension request.
func InsertExtension(ctx context.Context, q Querier, ext *model.ExtensionRequest) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO extension_requests (loan_id, days, reason, current_due_date, new_due_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ext.LoanID, ext.Days, nullString(ext.Reason), ext.CurrentDueDate, ext.NewDueDate,
		string(ext.Status), ext.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating extension request: %w", err)
	}
	ext.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting extension id: %w", err)
	}
	return nil
}

// GetExtension returns an extension request by ID.
func GetExtension(ctx context.Context, q Querier, id int64) (*model.ExtensionRequest, error) {
	ext, err := scanExtension(q.QueryRowContext(ctx,
		`SELECT `+extensionColumns+` FROM extension_requests WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound(model.EntityExtension, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting extension request: %w", err)
	}
	return ext, nil
}

// PendingExtension returns the pending extension request of a loan, or nil.
func PendingExtension(ctx context.Context, q Querier, loanID int64) (*model.ExtensionRequest, error) {
	ext, err := scanExtension(q.QueryRowContext(ctx,
		`SELECT `+extensionColumns+` FROM extension_requests WHERE loan_id = ? AND status = ?`,
		loanID, string(model.ExtensionPending),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting pending extension: %w", err)
	}
	return ext, nil
}

// ListExtensions returns the extension requests of a loan, oldest first.
// A zero loanID lists every request.
func ListExtensions(ctx context.Context, q Querier, loanID int64, status model.ExtensionStatus) ([]model.ExtensionRequest, error) {
	query := `SELECT ` + extensionColumns + ` FROM extension_requests WHERE 1=1`
	var args []any
	if loanID > 0 {
		query += ` AND loan_id = ?`
		args = append(args, loanID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing extension requests: %w", err)
	}
	defer rows.Close()

	var exts []model.ExtensionRequest
	for rows.Next() {
		ext, err := scanExtension(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning extension request: %w", err)
		}
		exts = append(exts, *ext)
	}
	return exts, rows.Err()
}

// ResolveExtension moves a pending request to status to. It reports false
// when the request is no longer pending.
func ResolveExtension(ctx context.Context, q Querier, id int64, to model.ExtensionStatus, notes string, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE extension_requests SET status = ?, notes = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), nullString(notes), at, id, string(model.ExtensionPending),
	)
	if err != nil {
		return false, fmt.Errorf("resolving extension request: %w", err)
	}
	return affected(result, "resolving extension request")
}

func scanExtension(row rowScanner) (*model.ExtensionRequest, error) {
	e := &model.ExtensionRequest{}
	var status string
	var reason, notes sql.NullString
	if err := row.Scan(&e.ID, &e.LoanID, &e.Days, &reason, &e.CurrentDueDate, &e.NewDueDate,
		&status, &notes, &e.CreatedAt, &e.ResolvedAt); err != nil {
		return nil, err
	}
	e.Status = model.ExtensionStatus(status)
	e.Reason = reason.String
	e.Notes = notes.String
	return e, nil
}
