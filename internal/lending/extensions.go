package lending

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// RequestExtension asks for days more on a BORROWED loan. The new due date is
// fixed now, from the loan's current due date.
func (s *Service) RequestExtension(ctx context.Context, loanID int64, days int, reason string) (*model.ExtensionRequest, error) {
	if err := s.Policy.CheckExtensionDays(days); err != nil {
		return nil, err
	}

	var ext *model.ExtensionRequest
	err := s.run(ctx, model.EntityExtension, "request", func(u *unit) error {
		loan, err := store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != model.LoanBorrowed {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(loan.Status), Action: "extend"}
		}

		pending, err := store.PendingExtension(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		if pending != nil {
			return fmt.Errorf("%w: loan %d already has pending extension %d", model.ErrInvalidState, loanID, pending.ID)
		}

		ext = &model.ExtensionRequest{
			LoanID:         loanID,
			Days:           days,
			Reason:         reason,
			CurrentDueDate: loan.DueDate,
			NewDueDate:     loan.DueDate.AddDate(0, 0, days),
			Status:         model.ExtensionPending,
			CreatedAt:      u.now,
		}
		if err := store.InsertExtension(u.ctx, u.tx, ext); err != nil {
			return err
		}
		return u.emit(events.ExtensionRequested, loan.BorrowerID, loanID, extensionPayload(ext))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("extension requested", "extension", ext.ID, "loan", loanID, "days", days)
	return ext, nil
}

// ApproveExtension moves the loan's due date to the proposed date. The loan
// must still be BORROWED; otherwise the request stays pending and should be
// rejected instead.
func (s *Service) ApproveExtension(ctx context.Context, extensionID int64, notes string) (*model.ExtensionRequest, error) {
	var ext *model.ExtensionRequest
	err := s.run(ctx, model.EntityExtension, "approve", func(u *unit) error {
		e, err := s.pendingExtension(u, extensionID, "approve")
		if err != nil {
			return err
		}

		loan, err := store.GetLoan(u.ctx, u.tx, e.LoanID)
		if err != nil {
			return err
		}
		if loan.Status != model.LoanBorrowed {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loan.ID, From: string(loan.Status), Action: "extend"}
		}

		ok, err := store.SetLoanDueDate(u.ctx, u.tx, loan.ID, e.NewDueDate, u.now)
		if err != nil {
			return err
		}
		if !ok {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loan.ID, From: string(loan.Status), Action: "extend"}
		}

		if ext, err = s.resolveExtension(u, e, model.ExtensionApproved, notes); err != nil {
			return err
		}
		return u.emit(events.ExtensionApproved, loan.BorrowerID, loan.ID, extensionPayload(ext))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("extension approved", "extension", ext.ID, "loan", ext.LoanID, "due", ext.NewDueDate)
	return ext, nil
}

// RejectExtension declines a pending request. The loan is not touched.
func (s *Service) RejectExtension(ctx context.Context, extensionID int64, notes string) (*model.ExtensionRequest, error) {
	var ext *model.ExtensionRequest
	err := s.run(ctx, model.EntityExtension, "reject", func(u *unit) error {
		e, err := s.pendingExtension(u, extensionID, "reject")
		if err != nil {
			return err
		}

		loan, err := store.GetLoan(u.ctx, u.tx, e.LoanID)
		if err != nil {
			return err
		}

		if ext, err = s.resolveExtension(u, e, model.ExtensionRejected, notes); err != nil {
			return err
		}
		return u.emit(events.ExtensionRejected, loan.BorrowerID, loan.ID, extensionPayload(ext))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("extension rejected", "extension", ext.ID, "loan", ext.LoanID)
	return ext, nil
}

func (s *Service) pendingExtension(u *unit, id int64, action string) (*model.ExtensionRequest, error) {
	e, err := store.GetExtension(u.ctx, u.tx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.ExtensionPending {
		return nil, &model.TransitionError{Entity: model.EntityExtension, ID: id, From: string(e.Status), Action: action}
	}
	return e, nil
}

func (s *Service) resolveExtension(u *unit, e *model.ExtensionRequest, to model.ExtensionStatus, notes string) (*model.ExtensionRequest, error) {
	if !e.Status.CanTransitionTo(to) {
		return nil, &model.TransitionError{Entity: model.EntityExtension, ID: e.ID, From: string(e.Status), Action: "resolve"}
	}
	ok, err := store.ResolveExtension(u.ctx, u.tx, e.ID, to, notes, u.now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &model.TransitionError{Entity: model.EntityExtension, ID: e.ID, From: string(e.Status), Action: "resolve"}
	}
	return store.GetExtension(u.ctx, u.tx, e.ID)
}

func extensionPayload(e *model.ExtensionRequest) events.ExtensionPayload {
	return events.ExtensionPayload{
		ExtensionID: e.ID,
		Days:        e.Days,
		NewDueDate:  e.NewDueDate,
		Notes:       e.Notes,
	}
}
