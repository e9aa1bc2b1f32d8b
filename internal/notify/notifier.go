// Package notify turns domain events into in-app notifications and runs the
// scheduled due-date reminder sweep.
package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

const dateLayout = "2006-01-02"

// Notifier stores a notification for the user each event is addressed to.
type Notifier struct {
	DB *sql.DB
}

// Handle is an events.Handler.
func (n *Notifier) Handle(ctx context.Context, e events.Event) error {
	if e.UserID == 0 {
		return nil
	}
	msg, err := Message(e)
	if err != nil {
		return err
	}
	return store.CreateNotification(ctx, n.DB, e.UserID, e.ID, msg, e.OccurredAt)
}

// Message renders the user-facing text of an event.
func Message(e events.Event) (string, error) {
	switch e.Type {
	case events.LoanRequested, events.LoanApproved, events.LoanRejected, events.LoanReturned,
		events.LoanOverdue, events.LoanDueSoon:
		var p events.LoanPayload
		if err := e.Decode(&p); err != nil {
			return "", err
		}
		return loanMessage(e.Type, e.LoanID, p), nil

	case events.ExtensionRequested, events.ExtensionApproved, events.ExtensionRejected:
		var p events.ExtensionPayload
		if err := e.Decode(&p); err != nil {
			return "", err
		}
		return extensionMessage(e.Type, e.LoanID, p), nil

	case events.FineIssued, events.FinePaid, events.FineWaived:
		var p events.FinePayload
		if err := e.Decode(&p); err != nil {
			return "", err
		}
		return fineMessage(e.Type, e.LoanID, p), nil
	}
	return fmt.Sprintf("%s on loan #%d", e.Type, e.LoanID), nil
}

func loanMessage(t events.Type, loanID int64, p events.LoanPayload) string {
	due := p.DueDate.Format(dateLayout)
	switch t {
	case events.LoanRequested:
		return fmt.Sprintf("Your loan request #%d for %d book(s) was received.", loanID, p.Copies)
	case events.LoanApproved:
		return fmt.Sprintf("Loan #%d was approved. Please return it by %s.", loanID, due)
	case events.LoanRejected:
		if p.AdminNotes != "" {
			return fmt.Sprintf("Loan request #%d was rejected: %s", loanID, p.AdminNotes)
		}
		return fmt.Sprintf("Loan request #%d was rejected.", loanID)
	case events.LoanReturned:
		if p.Status == "RETURNED" {
			return fmt.Sprintf("Loan #%d is fully returned. Thank you!", loanID)
		}
		return fmt.Sprintf("Part of loan #%d was returned. The rest is due %s.", loanID, due)
	case events.LoanOverdue:
		return fmt.Sprintf("Loan #%d is overdue. It was due %s.", loanID, due)
	default:
		return fmt.Sprintf("Loan #%d is due %s.", loanID, due)
	}
}

func extensionMessage(t events.Type, loanID int64, p events.ExtensionPayload) string {
	due := p.NewDueDate.Format(dateLayout)
	switch t {
	case events.ExtensionRequested:
		return fmt.Sprintf("Your %d-day extension request for loan #%d is waiting for approval.", p.Days, loanID)
	case events.ExtensionApproved:
		return fmt.Sprintf("Extension approved: loan #%d is now due %s.", loanID, due)
	default:
		return fmt.Sprintf("Extension request for loan #%d was rejected.", loanID)
	}
}

func fineMessage(t events.Type, loanID int64, p events.FinePayload) string {
	switch t {
	case events.FineIssued:
		return fmt.Sprintf("A %s fine of %s %s was issued for loan #%d.", p.Type, p.Amount, p.Currency, loanID)
	case events.FinePaid:
		return fmt.Sprintf("Fine #%d of %s %s was paid.", p.FineID, p.Amount, p.Currency)
	default:
		return fmt.Sprintf("Fine #%d of %s %s was waived.", p.FineID, p.Amount, p.Currency)
	}
}
