package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// DefaultDueSoonWindow is how far ahead a due date triggers a reminder.
const DefaultDueSoonWindow = 24 * time.Hour

// Sweeper finds open loans that are overdue or about to be and emits one
// reminder per loan and due date. It never issues fines: late fees are
// charged when the copies come back.
type Sweeper struct {
	DB            *sql.DB
	Bus           *events.Bus
	DueSoonWindow time.Duration
	Now           func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Check runs one sweep and returns the number of new reminders.
func (s *Sweeper) Check(ctx context.Context) (int, error) {
	loans, err := store.ListLoans(ctx, s.DB, store.LoanFilter{
		Statuses: []model.LoanStatus{model.LoanBorrowed, model.LoanPartialReturn},
	})
	if err != nil {
		return 0, fmt.Errorf("listing open loans: %w", err)
	}

	window := s.DueSoonWindow
	if window <= 0 {
		window = DefaultDueSoonWindow
	}

	now := s.now()
	var reminders []events.Event
	for i := range loans {
		loan := &loans[i]

		var t events.Type
		switch {
		case loan.IsOverdue(now):
			t = events.LoanOverdue
		case loan.DueDate.Sub(now) <= window:
			t = events.LoanDueSoon
		default:
			continue
		}

		key := fmt.Sprintf("%s:%d:%s", t, loan.ID, loan.DueDate.UTC().Format(time.RFC3339))
		e, err := events.NewKeyed(key, t, loan.BorrowerID, loan.ID, events.LoanPayload{
			Status:  string(loan.Status),
			DueDate: loan.DueDate,
			Copies:  loan.TotalCopies(),
		}, now)
		if err != nil {
			return 0, err
		}

		stored, err := events.SaveOnce(ctx, s.DB, e)
		if err != nil {
			return 0, err
		}
		if stored {
			reminders = append(reminders, e)
		}
	}

	s.Bus.Publish(reminders...)
	return len(reminders), nil
}

// Start schedules Check on schedule (standard cron syntax or descriptors such as
// "@daily"). Stop the returned scheduler on shutdown.
func (s *Sweeper) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := s.Check(ctx)
		if err != nil {
			slog.Error("reminder sweep failed", "error", err)
			return
		}
		slog.Info("reminder sweep finished", "reminders", n)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling reminder sweep %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
