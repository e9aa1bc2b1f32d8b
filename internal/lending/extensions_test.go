package lending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

func TestExtensionApproved(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 2, 100000)
	loan := f.borrowed(item(dune.ID, 1))

	ext, err := f.svc.RequestExtension(f.ctx, loan.ID, 14, "exams")
	require.NoError(t, err)
	assert.Equal(t, model.ExtensionPending, ext.Status)
	assert.True(t, ext.NewDueDate.Equal(loan.DueDate.AddDate(0, 0, 14)))
	assert.True(t, ext.CurrentDueDate.Equal(loan.DueDate))

	// The proposal is fixed at request time.
	f.now = f.now.Add(3 * 24 * time.Hour)
	ext, err = f.svc.ApproveExtension(f.ctx, ext.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.ExtensionApproved, ext.Status)
	assert.Equal(t, "ok", ext.Notes)
	require.NotNil(t, ext.ResolvedAt)

	got, err := f.svc.GetLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.DueDate.Equal(ext.NewDueDate))

	_, err = f.svc.ApproveExtension(f.ctx, ext.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)
	_, err = f.svc.RejectExtension(f.ctx, ext.ID, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	// A new request is possible once the previous one is resolved.
	_, err = f.svc.RequestExtension(f.ctx, loan.ID, 7, "")
	assert.NoError(t, err)
}

func TestExtensionSecondPendingFails(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 2, 100000)
	loan := f.borrowed(item(dune.ID, 1))

	_, err := f.svc.RequestExtension(f.ctx, loan.ID, 7, "")
	require.NoError(t, err)

	_, err = f.svc.RequestExtension(f.ctx, loan.ID, 14, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	pending, err := store.ListExtensions(f.ctx, f.db, loan.ID, model.ExtensionPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestExtensionInvalidLength(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 2, 100000)
	loan := f.borrowed(item(dune.ID, 1))

	for _, days := range []int{0, 1, 10, 31, -7} {
		_, err := f.svc.RequestExtension(f.ctx, loan.ID, days, "")
		assert.ErrorIs(t, err, model.ErrInvalidExtensionLength, "days=%d", days)
	}
}

func TestExtensionRequiresBorrowedLoan(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 3, 100000)

	pending := f.pending(item(dune.ID, 1))
	_, err := f.svc.RequestExtension(f.ctx, pending.ID, 7, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	partial := f.borrowed(item(dune.ID, 2))
	_, err = f.svc.ReturnLoan(f.ctx, partial.ID, []model.ReturnLine{{BookID: dune.ID, Quantity: 1, Condition: model.ConditionGood}}, "")
	require.NoError(t, err)
	_, err = f.svc.RequestExtension(f.ctx, partial.ID, 7, "")
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestExtensionApproveAfterReturnStaysPending(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 2, 100000)
	loan := f.borrowed(item(dune.ID, 1))

	ext, err := f.svc.RequestExtension(f.ctx, loan.ID, 7, "")
	require.NoError(t, err)

	_, err = f.svc.ReturnLoan(f.ctx, loan.ID, []model.ReturnLine{{BookID: dune.ID, Condition: model.ConditionGood}}, "")
	require.NoError(t, err)

	_, err = f.svc.ApproveExtension(f.ctx, ext.ID, "")
	var te *model.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.EntityLoan, te.Entity)
	assert.Equal(t, string(model.LoanReturned), te.From)

	got, err := store.GetExtension(f.ctx, f.db, ext.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExtensionPending, got.Status)

	loanAfter, err := f.svc.GetLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, loanAfter.DueDate.Equal(loan.DueDate))

	// Stale requests are rejected instead.
	rejected, err := f.svc.RejectExtension(f.ctx, ext.ID, "loan closed")
	require.NoError(t, err)
	assert.Equal(t, model.ExtensionRejected, rejected.Status)
}

func TestExtensionRejectLeavesLoan(t *testing.T) {
	f := newFixture(t)
	dune := f.book("Dune", 2, 100000)
	loan := f.borrowed(item(dune.ID, 1))

	ext, err := f.svc.RequestExtension(f.ctx, loan.ID, 30, "")
	require.NoError(t, err)

	ext, err = f.svc.RejectExtension(f.ctx, ext.ID, "no")
	require.NoError(t, err)
	assert.Equal(t, model.ExtensionRejected, ext.Status)

	got, err := f.svc.GetLoan(f.ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.DueDate.Equal(loan.DueDate))
}
