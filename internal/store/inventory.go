package store

import (
	"context"
	"fmt"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

// The inventory ledger. Every change is a single conditional UPDATE so the
// check and the write cannot be separated by a concurrent writer; the books
// table CHECK constraint is the last line of defence for
// 0 <= available_copies <= total_copies.

// ReserveCopies takes n copies of a book off the shelf. It fails with a
// StockError when fewer than n are available and changes nothing.
func ReserveCopies(ctx context.Context, q Querier, bookID int64, n int) error {
	if n <= 0 {
		return model.InvalidInput("quantity must be positive")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND available_copies >= ?`,
		n, bookID, n,
	)
	if err != nil {
		return fmt.Errorf("reserving copies: %w", err)
	}
	ok, err := affected(result, "reserving copies")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	b, err := GetBook(ctx, q, bookID)
	if err != nil {
		return err
	}
	if b.DeletedAt != nil {
		return model.NewNotFound(model.EntityBook, bookID)
	}
	return &model.StockError{BookID: bookID, Requested: n, Available: b.AvailableCopies}
}

// ReleaseCopies puts n copies back on the shelf.
func ReleaseCopies(ctx context.Context, q Querier, bookID int64, n int) error {
	if n <= 0 {
		return model.InvalidInput("quantity must be positive")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_copies + ? <= total_copies`,
		n, bookID, n,
	)
	if err != nil {
		return fmt.Errorf("releasing copies: %w", err)
	}
	ok, err := affected(result, "releasing copies")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	b, err := GetBook(ctx, q, bookID)
	if err != nil {
		return err
	}
	return fmt.Errorf("releasing %d copies of book %d would exceed total: available %d, total %d",
		n, bookID, b.AvailableCopies, b.TotalCopies)
}

// WriteOffCopies removes n copies that are out on loan from the collection.
// The shelf count is untouched.
func WriteOffCopies(ctx context.Context, q Querier, bookID int64, n int) error {
	if n <= 0 {
		return model.InvalidInput("quantity must be positive")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE books SET total_copies = total_copies - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND total_copies - ? >= available_copies`,
		n, bookID, n,
	)
	if err != nil {
		return fmt.Errorf("writing off copies: %w", err)
	}
	ok, err := affected(result, "writing off copies")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	b, err := GetBook(ctx, q, bookID)
	if err != nil {
		return err
	}
	return fmt.Errorf("writing off %d copies of book %d exceeds copies on loan: %d",
		n, bookID, b.OnLoan())
}

// AddCopies adds n new copies of a book to the collection and the shelf.
func AddCopies(ctx context.Context, q Querier, bookID int64, n int) error {
	if n <= 0 {
		return model.InvalidInput("quantity must be positive")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE books SET total_copies = total_copies + ?, available_copies = available_copies + ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		n, n, bookID,
	)
	if err != nil {
		return fmt.Errorf("adding copies: %w", err)
	}
	ok, err := affected(result, "adding copies")
	if err != nil {
		return err
	}
	if !ok {
		return model.NewNotFound(model.EntityBook, bookID)
	}
	return nil
}

// AdjustCopies corrects the copy count of a book (stocktake corrections,
// withdrawn copies). Delta can be negative but may only remove copies that
// are on the shelf.
func AdjustCopies(ctx context.Context, q Querier, bookID int64, delta int) error {
	if delta == 0 {
		return model.InvalidInput("delta must be non-zero")
	}

	result, err := q.ExecContext(ctx,
		`UPDATE books SET total_copies = total_copies + ?, available_copies = available_copies + ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND available_copies + ? >= 0`,
		delta, delta, bookID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting copies: %w", err)
	}
	ok, err := affected(result, "adjusting copies")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	b, err := GetBook(ctx, q, bookID)
	if err != nil {
		return err
	}
	if b.DeletedAt != nil {
		return model.NewNotFound(model.EntityBook, bookID)
	}
	return &model.StockError{BookID: bookID, Requested: -delta, Available: b.AvailableCopies}
}
