package lending

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// CreateLoanInput is a borrow request.
type CreateLoanInput struct {
	BorrowerID int64
	Items      []model.ItemRequest
	// DueDate defaults to now plus the loan period when zero.
	DueDate       time.Time
	Notes         string
	CreatedByRole string
}

func (s *Service) validateItems(items []model.ItemRequest) error {
	if len(items) == 0 {
		return model.InvalidInput("loan must contain at least one item")
	}
	seen := make(map[int64]bool, len(items))
	total := 0
	for _, it := range items {
		if it.Quantity <= 0 {
			return model.InvalidInput("quantity for book %d must be positive", it.BookID)
		}
		if seen[it.BookID] {
			return model.InvalidInput("book %d listed more than once", it.BookID)
		}
		seen[it.BookID] = true
		total += it.Quantity
	}
	if s.Policy.MaxCopiesPerLoan > 0 && total > s.Policy.MaxCopiesPerLoan {
		return model.InvalidInput("loan of %d copies exceeds the limit of %d", total, s.Policy.MaxCopiesPerLoan)
	}
	return nil
}

// CreateLoan records a PENDING loan. Every item must be available at the time
// of the request, but nothing is reserved until the loan is approved.
func (s *Service) CreateLoan(ctx context.Context, in CreateLoanInput) (*model.Loan, error) {
	if err := s.validateItems(in.Items); err != nil {
		return nil, err
	}

	var loan *model.Loan
	err := s.run(ctx, model.EntityLoan, "create", func(u *unit) error {
		due := in.DueDate.UTC()
		if in.DueDate.IsZero() {
			due = u.now.Add(s.Policy.LoanPeriod)
		} else if !due.After(u.now) {
			return model.InvalidInput("due date must be in the future")
		}

		if _, err := store.GetActiveUser(u.ctx, u.tx, in.BorrowerID); err != nil {
			return err
		}

		l := &model.Loan{
			BorrowerID:    in.BorrowerID,
			Status:        model.LoanPending,
			DueDate:       due,
			Notes:         in.Notes,
			CreatedByRole: in.CreatedByRole,
			CreatedAt:     u.now,
			UpdatedAt:     u.now,
		}
		for _, it := range in.Items {
			book, err := store.GetBook(u.ctx, u.tx, it.BookID)
			if err != nil {
				return err
			}
			if book.DeletedAt != nil {
				return model.NewNotFound(model.EntityBook, it.BookID)
			}
			if it.Quantity > book.AvailableCopies {
				return &model.StockError{BookID: it.BookID, Requested: it.Quantity, Available: book.AvailableCopies}
			}
			l.Items = append(l.Items, model.LoanItem{BookID: it.BookID, Quantity: it.Quantity})
		}

		if err := store.InsertLoan(u.ctx, u.tx, l); err != nil {
			return err
		}
		if err := u.emit(events.LoanRequested, l.BorrowerID, l.ID, loanPayload(l)); err != nil {
			return err
		}

		var err error
		loan, err = store.GetLoan(u.ctx, u.tx, l.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan requested", "loan", loan.ID, "user", loan.BorrowerID, "copies", loan.TotalCopies())
	return s.derive(loan), nil
}

// ApproveLoan reserves every item of a PENDING loan and marks it BORROWED.
// Reservation is all-or-nothing: if any book is short, nothing changes.
func (s *Service) ApproveLoan(ctx context.Context, loanID int64, notes string) (*model.Loan, error) {
	var loan *model.Loan
	err := s.run(ctx, model.EntityLoan, "approve", func(u *unit) error {
		l, err := store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		if !l.Status.CanTransitionTo(model.LoanBorrowed) {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(l.Status), Action: "approve"}
		}

		// The conditional status change comes first so a concurrent approve
		// or reject of the same loan loses before touching inventory.
		ok, err := store.UpdateLoan(u.ctx, u.tx, loanID, model.LoanPending, store.LoanUpdate{
			Status:     model.LoanBorrowed,
			AdminNotes: notes,
			ApprovedAt: &u.now,
			UpdatedAt:  u.now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(l.Status), Action: "approve"}
		}

		for _, it := range l.Items {
			if err := store.ReserveCopies(u.ctx, u.tx, it.BookID, it.Quantity); err != nil {
				return err
			}
		}

		loan, err = store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		return u.emit(events.LoanApproved, loan.BorrowerID, loan.ID, loanPayload(loan))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan approved", "loan", loan.ID, "user", loan.BorrowerID, "due", loan.DueDate)
	return s.derive(loan), nil
}

// RejectLoan cancels a PENDING loan. Nothing was reserved, so inventory is
// left alone.
func (s *Service) RejectLoan(ctx context.Context, loanID int64, notes string) (*model.Loan, error) {
	var loan *model.Loan
	err := s.run(ctx, model.EntityLoan, "reject", func(u *unit) error {
		l, err := store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		if !l.Status.CanTransitionTo(model.LoanCancelled) {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(l.Status), Action: "reject"}
		}

		ok, err := store.UpdateLoan(u.ctx, u.tx, loanID, model.LoanPending, store.LoanUpdate{
			Status:     model.LoanCancelled,
			AdminNotes: notes,
			UpdatedAt:  u.now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(l.Status), Action: "reject"}
		}

		loan, err = store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		return u.emit(events.LoanRejected, loan.BorrowerID, loan.ID, loanPayload(loan))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan rejected", "loan", loan.ID, "user", loan.BorrowerID)
	return s.derive(loan), nil
}

// GetLoan returns a loan with its overdue flag computed.
func (s *Service) GetLoan(ctx context.Context, loanID int64) (*model.Loan, error) {
	loan, err := store.GetLoan(ctx, s.DB, loanID)
	if err != nil {
		return nil, err
	}
	return s.derive(loan), nil
}

// ListLoans returns loans matching f with their overdue flags computed.
func (s *Service) ListLoans(ctx context.Context, f store.LoanFilter) ([]model.Loan, error) {
	loans, err := store.ListLoans(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range loans {
		loans[i].Overdue = loans[i].IsOverdue(now)
	}
	return loans, nil
}

func (s *Service) derive(loan *model.Loan) *model.Loan {
	loan.Overdue = loan.IsOverdue(s.now())
	return loan
}

func loanPayload(l *model.Loan) events.LoanPayload {
	return events.LoanPayload{
		Status:     string(l.Status),
		DueDate:    l.DueDate,
		Copies:     l.TotalCopies(),
		AdminNotes: l.AdminNotes,
	}
}
