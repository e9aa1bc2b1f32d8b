// Package lending runs the loan, extension and fine lifecycles. Every command
// is one database transaction: the status change, the inventory counts, the
// fines it raises and the events it emits commit together or not at all.
package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/finepolicy"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/metrics"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

// Service is the lifecycle coordinator.
type Service struct {
	DB     *sql.DB
	Policy Policy
	Fines  finepolicy.Policy
	// Bus receives the events of each committed command. May be nil.
	Bus *events.Bus
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// unit is the state of one command while its transaction is open.
type unit struct {
	ctx    context.Context
	tx     *sql.Tx
	now    time.Time
	events []events.Event
	fines  []model.FineType
}

// emit records an event in the transaction. It is published only after commit.
func (u *unit) emit(t events.Type, userID, loanID int64, payload any) error {
	e, err := events.New(t, userID, loanID, payload, u.now)
	if err != nil {
		return err
	}
	if err := events.Save(u.ctx, u.tx, e); err != nil {
		return err
	}
	u.events = append(u.events, e)
	return nil
}

// run executes fn in a transaction and publishes its events once committed.
// A failing fn rolls back everything it did.
func (s *Service) run(ctx context.Context, entity, action string, fn func(u *unit) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	u := &unit{ctx: ctx, tx: tx, now: s.now()}
	if err := fn(u); err != nil {
		metrics.RecordTransition(entity, action, outcome(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordTransition(entity, action, metrics.OutcomeError)
		return fmt.Errorf("committing %s %s: %w", action, entity, err)
	}

	metrics.RecordTransition(entity, action, metrics.OutcomeOK)
	for _, t := range u.fines {
		metrics.RecordFine(string(t))
	}
	s.Bus.Publish(u.events...)
	return nil
}

// IsRejection reports whether err is a refused command rather than a failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		model.ErrInvalidState,
		model.ErrInsufficientStock,
		model.ErrInvalidExtensionLength,
		model.ErrInvalidDamageLevel,
		model.ErrNotFound,
		model.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	if IsRejection(err) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
