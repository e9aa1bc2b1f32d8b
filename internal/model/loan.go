package model

import "time"

// LoanStatus is the persisted lifecycle state of a loan.
type LoanStatus string

// Loan statuses. Overdue is not a status: it is derived from the due date.
const (
	LoanPending       LoanStatus = "PENDING"
	LoanBorrowed      LoanStatus = "BORROWED"
	LoanPartialReturn LoanStatus = "PARTIAL_RETURN"
	LoanReturned      LoanStatus = "RETURNED"
	LoanCancelled     LoanStatus = "CANCELLED"
)

// Valid reports whether s is a known loan status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanBorrowed, LoanPartialReturn, LoanReturned, LoanCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the loan lifecycle allows moving from s to next.
//
//	PENDING -> BORROWED | CANCELLED
//	BORROWED | PARTIAL_RETURN -> PARTIAL_RETURN | RETURNED
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	switch s {
	case LoanPending:
		return next == LoanBorrowed || next == LoanCancelled
	case LoanBorrowed, LoanPartialReturn:
		return next == LoanPartialReturn || next == LoanReturned
	case LoanReturned, LoanCancelled:
		return false
	}
	return false
}

// Open reports whether copies are out with the borrower.
func (s LoanStatus) Open() bool {
	return s == LoanBorrowed || s == LoanPartialReturn
}

// ItemCondition is the outcome recorded for a returned copy.
type ItemCondition string

// Item conditions.
const (
	ConditionGood    ItemCondition = "GOOD"
	ConditionDamaged ItemCondition = "DAMAGED"
	ConditionLost    ItemCondition = "LOST"
)

// Valid reports whether c is a known condition.
func (c ItemCondition) Valid() bool {
	return c == ConditionGood || c == ConditionDamaged || c == ConditionLost
}

// Loan is one borrow transaction covering one or more titles.
type Loan struct {
	ID            int64      `json:"id"`
	BorrowerID    int64      `json:"borrower_id"`
	Items         []LoanItem `json:"items"`
	Status        LoanStatus `json:"status"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	AdminNotes    string     `json:"admin_notes,omitempty"`
	CreatedByRole string     `json:"created_by_role"`
	LateFeeIssued bool       `json:"late_fee_issued"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Derived at read time.
	Overdue bool `json:"overdue"`
}

// IsOverdue reports whether copies are still out after the due date.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status.Open() && now.After(l.DueDate)
}

// Item returns the loan line for bookID.
func (l *Loan) Item(bookID int64) (*LoanItem, bool) {
	for i := range l.Items {
		if l.Items[i].BookID == bookID {
			return &l.Items[i], true
		}
	}
	return nil, false
}

// TotalCopies returns the number of copies requested across all lines.
func (l *Loan) TotalCopies() int {
	n := 0
	for _, it := range l.Items {
		n += it.Quantity
	}
	return n
}

// LoanItem is one title within a loan.
type LoanItem struct {
	ID               int64         `json:"id"`
	LoanID           int64         `json:"loan_id"`
	BookID           int64         `json:"book_id"`
	Quantity         int           `json:"quantity"`
	ReturnedQuantity int           `json:"returned_quantity"`
	Condition        ItemCondition `json:"condition,omitempty"`

	// Joined fields (not always populated).
	BookTitle string `json:"book_title,omitempty"`
}

// Outstanding returns the number of copies not yet returned.
func (it *LoanItem) Outstanding() int {
	return it.Quantity - it.ReturnedQuantity
}

// ItemRequest is a requested title and quantity when a loan is created.
type ItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

// ReturnLine is the assessed outcome for copies handed back in one return.
// A zero Quantity means every outstanding copy of the book.
type ReturnLine struct {
	BookID        int64         `json:"book_id"`
	Quantity      int           `json:"quantity"`
	Condition     ItemCondition `json:"condition"`
	DamagePercent int           `json:"damage_percent,omitempty"`
}

// LoanReturn is the audit record of one processed return line.
type LoanReturn struct {
	ID            int64         `json:"id"`
	LoanItemID    int64         `json:"loan_item_id"`
	Quantity      int           `json:"quantity"`
	Condition     ItemCondition `json:"condition"`
	DamagePercent int           `json:"damage_percent,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	ProcessedAt   time.Time     `json:"processed_at"`
}
