package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is a catalogue title with a copy count. Copies are interchangeable; the
// ledger tracks how many exist and how many are on the shelf.
type Book struct {
	ID              int64           `json:"id"`
	ISBN            string          `json:"isbn,omitempty"`
	Title           string          `json:"title"`
	Author          string          `json:"author,omitempty"`
	Price           decimal.Decimal `json:"price"`
	TotalCopies     int             `json:"total_copies"`
	AvailableCopies int             `json:"available_copies"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// OnLoan returns the number of copies currently out of the library.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}
