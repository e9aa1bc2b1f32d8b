package lending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

func TestCommittedCommandsPublishEvents(t *testing.T) {
	f := newFixture(t)
	bus := events.NewBus(32)
	f.svc.Bus = bus

	got := make(chan events.Event, 32)
	bus.Subscribe(func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	dune := f.book("Dune", 1, 100000)
	loan := f.borrowed(item(dune.ID, 1))
	res, err := f.svc.ReturnLoan(f.ctx, loan.ID, []model.ReturnLine{{BookID: dune.ID, Condition: model.ConditionLost}}, "")
	require.NoError(t, err)
	_, err = f.svc.PayFine(f.ctx, res.Fines[0].ID)
	require.NoError(t, err)

	// A rejected command emits nothing.
	_, err = f.svc.PayFine(f.ctx, res.Fines[0].ID)
	require.Error(t, err)

	want := []events.Type{events.LoanRequested, events.LoanApproved, events.FineIssued, events.LoanReturned, events.FinePaid}
	for _, typ := range want {
		select {
		case e := <-got:
			assert.Equal(t, typ, e.Type)
			assert.Equal(t, f.reader.ID, e.UserID)
			assert.Equal(t, loan.ID, e.LoanID)
		case <-time.After(time.Second):
			t.Fatalf("event %s not published", typ)
		}
	}
	select {
	case e := <-got:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}

	records, err := store.ListEvents(f.ctx, f.db, loan.ID)
	require.NoError(t, err)
	require.Len(t, records, len(want))
	for i, r := range records {
		assert.Equal(t, string(want[i]), r.Type)
	}

	var p events.FinePayload
	require.NoError(t, events.FromRecord(records[2]).Decode(&p))
	assert.Equal(t, res.Fines[0].ID, p.FineID)
	assert.Equal(t, "100000", p.Amount)
}

func TestRolledBackCommandsLeaveNoEvents(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 1, 100000)
	loan := f.pending(item(dune.ID, 1))
	f.borrowed(item(dune.ID, 1))

	_, err := f.svc.ApproveLoan(f.ctx, loan.ID, "")
	require.ErrorIs(t, err, model.ErrInsufficientStock)

	records, err := store.ListEvents(f.ctx, f.db, loan.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(events.LoanRequested), records[0].Type)
}
