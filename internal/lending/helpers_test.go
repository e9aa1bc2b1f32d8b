package lending

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/db"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/finepolicy"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

var start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *sql.DB
	svc    *Service
	now    time.Time
	reader *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), db: db.NewTestDB(t), now: start}
	f.svc = &Service{
		DB:     f.db,
		Policy: DefaultPolicy(),
		Fines:  finepolicy.DefaultPolicy(),
		Now:    func() time.Time { return f.now },
	}

	var err error
	f.reader, err = store.CreateUser(f.ctx, f.db, "reader", "hash", model.RoleReader)
	require.NoError(t, err)
	return f
}

func (f *fixture) book(title string, copies int, price int64) *model.Book {
	f.t.Helper()
	b, err := store.CreateBook(f.ctx, f.db, "", title, "", decimal.NewFromInt(price), copies)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) reload(b *model.Book) *model.Book {
	f.t.Helper()
	got, err := store.GetBook(f.ctx, f.db, b.ID)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) pending(items ...model.ItemRequest) *model.Loan {
	f.t.Helper()
	loan, err := f.svc.CreateLoan(f.ctx, CreateLoanInput{
		BorrowerID:    f.reader.ID,
		Items:         items,
		CreatedByRole: model.RoleReader,
	})
	require.NoError(f.t, err)
	return loan
}

func (f *fixture) borrowed(items ...model.ItemRequest) *model.Loan {
	f.t.Helper()
	loan := f.pending(items...)
	loan, err := f.svc.ApproveLoan(f.ctx, loan.ID, "")
	require.NoError(f.t, err)
	return loan
}

func (f *fixture) fines(loanID int64) []model.Fine {
	f.t.Helper()
	fines, err := store.ListFines(f.ctx, f.db, store.FineFilter{LoanID: loanID})
	require.NoError(f.t, err)
	return fines
}

// assertShelves checks 0 <= available <= total for every book.
func (f *fixture) assertShelves() {
	f.t.Helper()
	books, err := store.ListBooks(f.ctx, f.db, "")
	require.NoError(f.t, err)
	for _, b := range books {
		require.GreaterOrEqual(f.t, b.AvailableCopies, 0, "book %d", b.ID)
		require.LessOrEqual(f.t, b.AvailableCopies, b.TotalCopies, "book %d", b.ID)
	}
}

func item(bookID int64, qty int) model.ItemRequest {
	return model.ItemRequest{BookID: bookID, Quantity: qty}
}
