package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

const loanColumns = `l.id, l.borrower_id, l.status, l.due_date, l.return_date, l.notes, l.admin_notes,
	l.created_by_role, l.late_fee_issued, l.created_at, l.approved_at, l.updated_at`

// InsertLoan stores a new loan and its items, filling in the generated IDs.
func InsertLoan(ctx context.Context, q Querier, loan *model.Loan) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO loans (borrower_id, status, due_date, notes, created_by_role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		loan.BorrowerID, string(loan.Status), loan.DueDate, nullString(loan.Notes),
		loan.CreatedByRole, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating loan: %w", err)
	}
	loan.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting loan id: %w", err)
	}

	for i := range loan.Items {
		item := &loan.Items[i]
		item.LoanID = loan.ID
		result, err := q.ExecContext(ctx,
			`INSERT INTO loan_items (loan_id, book_id, quantity) VALUES (?, ?, ?)`,
			loan.ID, item.BookID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("creating loan item for book %d: %w", item.BookID, err)
		}
		item.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting loan item id: %w", err)
		}
	}
	return nil
}

// GetLoan returns a loan with its items.
func GetLoan(ctx context.Context, q Querier, id int64) (*model.Loan, error) {
	loan, err := scanLoan(q.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans l WHERE l.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound(model.EntityLoan, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}

	items, err := listLoanItems(ctx, q, `li.loan_id = ?`, id)
	if err != nil {
		return nil, err
	}
	loan.Items = items[id]
	return loan, nil
}

// LoanFilter narrows ListLoans. Zero values match everything.
type LoanFilter struct {
	BorrowerID int64
	Statuses   []model.LoanStatus
}

func (f LoanFilter) where() (string, []any) {
	clauses := []string{"1=1"}
	var args []any
	if f.BorrowerID > 0 {
		clauses = append(clauses, "l.borrower_id = ?")
		args = append(args, f.BorrowerID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		clauses = append(clauses, "l.status IN ("+strings.Join(marks, ", ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

// ListLoans returns loans with their items, newest first.
func ListLoans(ctx context.Context, q Querier, f LoanFilter) ([]model.Loan, error) {
	where, args := f.where()

	rows, err := q.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans l WHERE `+where+` ORDER BY l.created_at DESC, l.id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(loans) == 0 {
		return loans, nil
	}

	items, err := listLoanItems(ctx, q, `li.loan_id IN (SELECT l.id FROM loans l WHERE `+where+`)`, args...)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		loans[i].Items = items[loans[i].ID]
	}
	return loans, nil
}

func listLoanItems(ctx context.Context, q Querier, where string, args ...any) (map[int64][]model.LoanItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT li.id, li.loan_id, li.book_id, li.quantity, li.returned_quantity, li.condition, b.title
		 FROM loan_items li
		 JOIN books b ON b.id = li.book_id
		 WHERE `+where+`
		 ORDER BY li.id`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing loan items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]model.LoanItem)
	for rows.Next() {
		var it model.LoanItem
		var condition sql.NullString
		if err := rows.Scan(&it.ID, &it.LoanID, &it.BookID, &it.Quantity, &it.ReturnedQuantity,
			&condition, &it.BookTitle); err != nil {
			return nil, fmt.Errorf("scanning loan item: %w", err)
		}
		it.Condition = model.ItemCondition(condition.String)
		items[it.LoanID] = append(items[it.LoanID], it)
	}
	return items, rows.Err()
}

func scanLoan(row rowScanner) (*model.Loan, error) {
	l := &model.Loan{}
	var status string
	var notes, adminNotes sql.NullString
	if err := row.Scan(&l.ID, &l.BorrowerID, &status, &l.DueDate, &l.ReturnDate, &notes, &adminNotes,
		&l.CreatedByRole, &l.LateFeeIssued, &l.CreatedAt, &l.ApprovedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = model.LoanStatus(status)
	l.Notes = notes.String
	l.AdminNotes = adminNotes.String
	return l, nil
}

// LoanUpdate describes a status change of a loan and the fields set with it.
// Nil/empty fields keep their stored value.
type LoanUpdate struct {
	Status        model.LoanStatus
	AdminNotes    string
	ApprovedAt    *time.Time
	ReturnDate    *time.Time
	LateFeeIssued bool
	UpdatedAt     time.Time
}

// UpdateLoan applies u only if the loan is still in status from. It reports
// false, without error, when the loan has already moved on.
func UpdateLoan(ctx context.Context, q Querier, id int64, from model.LoanStatus, u LoanUpdate) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE loans SET
		     status = ?,
		     admin_notes = COALESCE(?, admin_notes),
		     approved_at = COALESCE(?, approved_at),
		     return_date = COALESCE(?, return_date),
		     late_fee_issued = MAX(late_fee_issued, ?),
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(u.Status), nullString(u.AdminNotes), u.ApprovedAt, u.ReturnDate, u.LateFeeIssued,
		u.UpdatedAt, id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("updating loan: %w", err)
	}
	return affected(result, "updating loan")
}

// SetLoanDueDate moves the due date of a loan that is still borrowed.
func SetLoanDueDate(ctx context.Context, q Querier, id int64, due, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE loans SET due_date = ?, updated_at = ? WHERE id = ? AND status = ?`,
		due, at, id, string(model.LoanBorrowed),
	)
	if err != nil {
		return false, fmt.Errorf("setting loan due date: %w", err)
	}
	return affected(result, "setting loan due date")
}

// RecordItemReturn adds quantity to the returned count of a loan item and
// writes the return record. It refuses to return more than is outstanding.
func RecordItemReturn(ctx context.Context, q Querier, r model.LoanReturn) (*model.LoanReturn, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE loan_items SET returned_quantity = returned_quantity + ?, condition = ?
		 WHERE id = ? AND returned_quantity + ? <= quantity`,
		r.Quantity, string(r.Condition), r.LoanItemID, r.Quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("recording item return: %w", err)
	}
	ok, err := affected(result, "recording item return")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.InvalidInput("loan item %d: returning %d copies exceeds outstanding quantity", r.LoanItemID, r.Quantity)
	}

	var pct sql.NullInt64
	if r.DamagePercent > 0 {
		pct = sql.NullInt64{Int64: int64(r.DamagePercent), Valid: true}
	}
	result, err = q.ExecContext(ctx,
		`INSERT INTO loan_returns (loan_item_id, quantity, condition, damage_percent, notes, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.LoanItemID, r.Quantity, string(r.Condition), pct, nullString(r.Notes), r.ProcessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording return line: %w", err)
	}
	r.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting return id: %w", err)
	}
	return &r, nil
}

// ListLoanReturns returns the processed return lines of a loan in order.
func ListLoanReturns(ctx context.Context, q Querier, loanID int64) ([]model.LoanReturn, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, r.loan_item_id, r.quantity, r.condition, r.damage_percent, r.notes, r.processed_at
		 FROM loan_returns r
		 JOIN loan_items li ON li.id = r.loan_item_id
		 WHERE li.loan_id = ?
		 ORDER BY r.id`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing loan returns: %w", err)
	}
	defer rows.Close()

	var returns []model.LoanReturn
	for rows.Next() {
		var r model.LoanReturn
		var condition string
		var pct sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&r.ID, &r.LoanItemID, &r.Quantity, &condition, &pct, &notes, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scanning loan return: %w", err)
		}
		r.Condition = model.ItemCondition(condition)
		r.DamagePercent = int(pct.Int64)
		r.Notes = notes.String
		returns = append(returns, r)
	}
	return returns, rows.Err()
}
