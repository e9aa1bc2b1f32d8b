package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

const fineColumns = `id, user_id, loan_id, loan_item_id, type, amount, currency, description, status,
	waiver_reason, created_at, paid_at, waived_at`

// InsertFine stores a new fine.
func InsertFine(ctx context.Context, q Querier, f *model.Fine) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO fines (user_id, loan_id, loan_item_id, type, amount, currency, description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.UserID, f.LoanID, f.LoanItemID, string(f.Type), f.Amount.String(), f.Currency,
		nullString(f.Description), string(f.Status), f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating fine: %w", err)
	}
	f.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting fine id: %w", err)
	}
	return nil
}

// GetFine returns a fine by ID.
func GetFine(ctx context.Context, q Querier, id int64) (*model.Fine, error) {
	f, err := scanFine(q.QueryRowContext(ctx,
		`SELECT `+fineColumns+` FROM fines WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound(model.EntityFine, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting fine: %w", err)
	}
	return f, nil
}

// FineFilter narrows ListFines. Zero values match everything.
type FineFilter struct {
	UserID int64
	LoanID int64
	Status model.FineStatus
}

// ListFines returns fines, newest first.
func ListFines(ctx context.Context, q Querier, f FineFilter) ([]model.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE 1=1`
	var args []any
	if f.UserID > 0 {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.LoanID > 0 {
		query += ` AND loan_id = ?`
		args = append(args, f.LoanID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fines: %w", err)
	}
	defer rows.Close()

	var fines []model.Fine
	for rows.Next() {
		fine, err := scanFine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fine: %w", err)
		}
		fines = append(fines, *fine)
	}
	return fines, rows.Err()
}

// MarkFinePaid settles a pending fine. It reports false when the fine is no
// longer pending.
func MarkFinePaid(ctx context.Context, q Querier, id int64, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE fines SET status = ?, paid_at = ? WHERE id = ? AND status = ?`,
		string(model.FinePaid), at, id, string(model.FinePending),
	)
	if err != nil {
		return false, fmt.Errorf("paying fine: %w", err)
	}
	return affected(result, "paying fine")
}

// MarkFineWaived waives a pending fine with a reason. It reports false when
// the fine is no longer pending.
func MarkFineWaived(ctx context.Context, q Querier, id int64, reason string, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE fines SET status = ?, waiver_reason = ?, waived_at = ? WHERE id = ? AND status = ?`,
		string(model.FineWaived), reason, at, id, string(model.FinePending),
	)
	if err != nil {
		return false, fmt.Errorf("waiving fine: %w", err)
	}
	return affected(result, "waiving fine")
}

func scanFine(row rowScanner) (*model.Fine, error) {
	f := &model.Fine{}
	var fineType, status, amount string
	var description, waiverReason sql.NullString
	var itemID sql.NullInt64
	if err := row.Scan(&f.ID, &f.UserID, &f.LoanID, &itemID, &fineType, &amount, &f.Currency, &description,
		&status, &waiverReason, &f.CreatedAt, &f.PaidAt, &f.WaivedAt); err != nil {
		return nil, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount of fine %d: %w", f.ID, err)
	}
	f.Amount = a
	if itemID.Valid {
		f.LoanItemID = &itemID.Int64
	}
	f.Type = model.FineType(fineType)
	f.Status = model.FineStatus(status)
	f.Description = description.String
	f.WaiverReason = waiverReason.String
	return f, nil
}
