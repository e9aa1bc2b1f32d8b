package lending

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// PayFine settles a PENDING fine. A second attempt fails with ErrInvalidState.
func (s *Service) PayFine(ctx context.Context, fineID int64) (*model.Fine, error) {
	fine, err := s.resolveFine(ctx, fineID, model.FinePaid, "")
	if err != nil {
		return nil, err
	}
	slog.Info("fine paid", "fine", fine.ID, "user", fine.UserID, "amount", fine.Amount.String())
	return fine, nil
}

// WaiveFine forgives a PENDING fine. A reason is required.
func (s *Service) WaiveFine(ctx context.Context, fineID int64, reason string) (*model.Fine, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, model.InvalidInput("waiver reason required")
	}
	fine, err := s.resolveFine(ctx, fineID, model.FineWaived, reason)
	if err != nil {
		return nil, err
	}
	slog.Info("fine waived", "fine", fine.ID, "user", fine.UserID, "reason", reason)
	return fine, nil
}

func (s *Service) resolveFine(ctx context.Context, fineID int64, to model.FineStatus, reason string) (*model.Fine, error) {
	action, event := "pay", events.FinePaid
	if to == model.FineWaived {
		action, event = "waive", events.FineWaived
	}

	var fine *model.Fine
	err := s.run(ctx, model.EntityFine, action, func(u *unit) error {
		f, err := store.GetFine(u.ctx, u.tx, fineID)
		if err != nil {
			return err
		}
		if !f.Status.CanTransitionTo(to) {
			return &model.TransitionError{Entity: model.EntityFine, ID: fineID, From: string(f.Status), Action: action}
		}

		var ok bool
		if to == model.FineWaived {
			ok, err = store.MarkFineWaived(u.ctx, u.tx, fineID, reason, u.now)
		} else {
			ok, err = store.MarkFinePaid(u.ctx, u.tx, fineID, u.now)
		}
		if err != nil {
			return err
		}
		if !ok {
			return &model.TransitionError{Entity: model.EntityFine, ID: fineID, From: string(f.Status), Action: action}
		}

		if fine, err = store.GetFine(u.ctx, u.tx, fineID); err != nil {
			return err
		}
		return u.emit(event, fine.UserID, fine.LoanID, finePayload(fine))
	})
	if err != nil {
		return nil, err
	}
	return fine, nil
}
