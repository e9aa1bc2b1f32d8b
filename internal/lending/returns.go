package lending

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/finepolicy"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// plannedLine is a validated return line bound to its loan item.
type plannedLine struct {
	ItemID        int64
	BookID        int64
	Quantity      int
	Condition     model.ItemCondition
	DamagePercent int
}

// returnPlan is the outcome of a return call before anything is written.
type returnPlan struct {
	Lines []plannedLine
	// Status is the loan status once every line is applied.
	Status model.LoanStatus
}

// planReturn checks return lines against the outstanding quantities of loan.
// A zero quantity takes whatever is still outstanding for the book. Several
// lines may name the same book as long as together they stay within what is
// outstanding.
func planReturn(loan *model.Loan, lines []model.ReturnLine) (*returnPlan, error) {
	if len(lines) == 0 {
		return nil, model.InvalidInput("return must contain at least one line")
	}

	outstanding := make(map[int64]int, len(loan.Items))
	for _, it := range loan.Items {
		outstanding[it.BookID] = it.Outstanding()
	}

	plan := &returnPlan{}
	for _, line := range lines {
		item, ok := loan.Item(line.BookID)
		if !ok {
			return nil, model.InvalidInput("book %d is not part of loan %d", line.BookID, loan.ID)
		}
		if !line.Condition.Valid() {
			return nil, model.InvalidInput("unknown condition %q for book %d", line.Condition, line.BookID)
		}
		left := outstanding[line.BookID]
		if line.Quantity < 0 {
			return nil, model.InvalidInput("quantity for book %d must not be negative", line.BookID)
		}

		qty := line.Quantity
		if qty == 0 {
			qty = left
		}
		if qty == 0 {
			return nil, model.InvalidInput("book %d has no copies outstanding", line.BookID)
		}
		if qty > left {
			return nil, model.InvalidInput("returning %d copies of book %d but only %d outstanding", qty, line.BookID, left)
		}

		pct := 0
		if line.Condition == model.ConditionDamaged {
			if err := finepolicy.ValidateDamagePercent(line.DamagePercent); err != nil {
				return nil, fmt.Errorf("book %d: %w", line.BookID, err)
			}
			pct = line.DamagePercent
		}

		outstanding[line.BookID] = left - qty
		plan.Lines = append(plan.Lines, plannedLine{
			ItemID:        item.ID,
			BookID:        line.BookID,
			Quantity:      qty,
			Condition:     line.Condition,
			DamagePercent: pct,
		})
	}

	plan.Status = model.LoanReturned
	for _, left := range outstanding {
		if left > 0 {
			plan.Status = model.LoanPartialReturn
			break
		}
	}
	return plan, nil
}

// ReturnResult is the outcome of a processed return.
type ReturnResult struct {
	Loan  *model.Loan  `json:"loan"`
	Fines []model.Fine `json:"fines"`
}

// ReturnLoan processes returned copies of a BORROWED or PARTIAL_RETURN loan.
// GOOD and DAMAGED copies go back on the shelf; LOST copies leave the
// collection. DAMAGED and LOST lines each raise a fine for their copies, and
// the first return after the due date raises the loan's single late fee.
func (s *Service) ReturnLoan(ctx context.Context, loanID int64, lines []model.ReturnLine, notes string) (*ReturnResult, error) {
	result := &ReturnResult{}
	err := s.run(ctx, model.EntityLoan, "return", func(u *unit) error {
		loan, err := store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.Open() {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(loan.Status), Action: "return"}
		}

		plan, err := planReturn(loan, lines)
		if err != nil {
			return err
		}
		if !loan.Status.CanTransitionTo(plan.Status) {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(loan.Status), Action: "return"}
		}

		for _, line := range plan.Lines {
			if _, err := store.RecordItemReturn(u.ctx, u.tx, model.LoanReturn{
				LoanItemID:    line.ItemID,
				Quantity:      line.Quantity,
				Condition:     line.Condition,
				DamagePercent: line.DamagePercent,
				Notes:         notes,
				ProcessedAt:   u.now,
			}); err != nil {
				return err
			}

			switch line.Condition {
			case model.ConditionGood:
				err = store.ReleaseCopies(u.ctx, u.tx, line.BookID, line.Quantity)
			case model.ConditionDamaged:
				if err = store.ReleaseCopies(u.ctx, u.tx, line.BookID, line.Quantity); err == nil {
					err = s.issueItemFine(u, loan, line, model.FineDamage, result)
				}
			case model.ConditionLost:
				if err = store.WriteOffCopies(u.ctx, u.tx, line.BookID, line.Quantity); err == nil {
					err = s.issueItemFine(u, loan, line, model.FineLoss, result)
				}
			}
			if err != nil {
				return err
			}
		}

		lateIssued := false
		if !loan.LateFeeIssued && u.now.After(loan.DueDate) {
			if err := s.issueLateFee(u, loan, result); err != nil {
				return err
			}
			lateIssued = true
		}

		update := store.LoanUpdate{
			Status:        plan.Status,
			AdminNotes:    notes,
			LateFeeIssued: lateIssued,
			UpdatedAt:     u.now,
		}
		if plan.Status == model.LoanReturned {
			update.ReturnDate = &u.now
		}
		ok, err := store.UpdateLoan(u.ctx, u.tx, loanID, loan.Status, update)
		if err != nil {
			return err
		}
		if !ok {
			return &model.TransitionError{Entity: model.EntityLoan, ID: loanID, From: string(loan.Status), Action: "return"}
		}

		result.Loan, err = store.GetLoan(u.ctx, u.tx, loanID)
		if err != nil {
			return err
		}
		return u.emit(events.LoanReturned, loan.BorrowerID, loanID, loanPayload(result.Loan))
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan return processed", "loan", loanID, "user", result.Loan.BorrowerID,
		"status", result.Loan.Status, "fines", len(result.Fines))
	for _, f := range result.Fines {
		slog.Info("fine issued", "fine", f.ID, "loan", loanID, "user", f.UserID, "type", f.Type, "amount", f.Amount.String())
	}
	s.derive(result.Loan)
	return result, nil
}

func (s *Service) issueItemFine(u *unit, loan *model.Loan, line plannedLine, fineType model.FineType, result *ReturnResult) error {
	book, err := store.GetBook(u.ctx, u.tx, line.BookID)
	if err != nil {
		return err
	}
	perCopy, err := s.Fines.ComputeFine(fineType, book.Price, line.DamagePercent)
	if err != nil {
		return err
	}

	itemID := line.ItemID
	desc := fmt.Sprintf("%d x %q lost", line.Quantity, book.Title)
	if fineType == model.FineDamage {
		desc = fmt.Sprintf("%d x %q damaged (%d%%)", line.Quantity, book.Title, line.DamagePercent)
	}
	return s.issueFine(u, loan, &model.Fine{
		LoanItemID:  &itemID,
		Type:        fineType,
		Amount:      perCopy.Mul(decimal.NewFromInt(int64(line.Quantity))),
		Description: desc,
	}, result)
}

func (s *Service) issueLateFee(u *unit, loan *model.Loan, result *ReturnResult) error {
	days := finepolicy.DaysOverdue(loan.DueDate, u.now)
	amount, err := s.Fines.Compute(finepolicy.Assessment{Type: model.FineLateReturn, DaysOverdue: days})
	if err != nil {
		return err
	}
	return s.issueFine(u, loan, &model.Fine{
		Type:        model.FineLateReturn,
		Amount:      amount,
		Description: fmt.Sprintf("returned %d day(s) late", days),
	}, result)
}

// issueFine stores a PENDING fine against the borrower of loan.
func (s *Service) issueFine(u *unit, loan *model.Loan, f *model.Fine, result *ReturnResult) error {
	f.UserID = loan.BorrowerID
	f.LoanID = loan.ID
	f.Currency = s.Fines.Currency
	f.Status = model.FinePending
	f.CreatedAt = u.now
	if err := store.InsertFine(u.ctx, u.tx, f); err != nil {
		return err
	}

	u.fines = append(u.fines, f.Type)
	result.Fines = append(result.Fines, *f)
	return u.emit(events.FineIssued, f.UserID, loan.ID, finePayload(f))
}

func finePayload(f *model.Fine) events.FinePayload {
	return events.FinePayload{
		FineID:   f.ID,
		Type:     string(f.Type),
		Amount:   f.Amount.String(),
		Currency: f.Currency,
		Reason:   f.WaiverReason,
	}
}
