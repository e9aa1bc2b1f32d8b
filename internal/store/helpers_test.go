package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

func mustUser(t *testing.T, q Querier, name string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), q, name, "hash", model.RoleReader)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func mustBook(t *testing.T, q Querier, title string, copies int) *model.Book {
	t.Helper()
	b, err := CreateBook(context.Background(), q, "", title, "", decimal.NewFromInt(100000), copies)
	if err != nil {
		t.Fatalf("CreateBook(%s): %v", title, err)
	}
	return b
}

func mustLoan(t *testing.T, database *sql.DB, borrower int64, items ...model.ItemRequest) *model.Loan {
	t.Helper()
	now := time.Now().UTC()
	loan := &model.Loan{
		BorrowerID:    borrower,
		Status:        model.LoanPending,
		DueDate:       now.Add(14 * 24 * time.Hour),
		CreatedByRole: model.RoleReader,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range items {
		loan.Items = append(loan.Items, model.LoanItem{BookID: it.BookID, Quantity: it.Quantity})
	}
	if err := InsertLoan(context.Background(), database, loan); err != nil {
		t.Fatalf("InsertLoan: %v", err)
	}
	return loan
}
