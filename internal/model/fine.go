package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FineType is the cause of a fine.
type FineType string

// Fine types.
const (
	FineLateReturn FineType = "LATE_RETURN"
	FineDamage     FineType = "DAMAGE"
	FineLoss       FineType = "LOSS"
)

// Valid reports whether t is a known fine type.
func (t FineType) Valid() bool {
	return t == FineLateReturn || t == FineDamage || t == FineLoss
}

// FineStatus is the lifecycle state of a fine. PAID and WAIVED are terminal.
type FineStatus string

// Fine statuses.
const (
	FinePending FineStatus = "PENDING"
	FinePaid    FineStatus = "PAID"
	FineWaived  FineStatus = "WAIVED"
)

// CanTransitionTo reports whether a fine may move from s to next.
func (s FineStatus) CanTransitionTo(next FineStatus) bool {
	switch s {
	case FinePending:
		return next == FinePaid || next == FineWaived
	case FinePaid, FineWaived:
		return false
	}
	return false
}

// Fine is a monetary penalty raised by return processing. Fines are never
// deleted.
type Fine struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	LoanID       int64           `json:"loan_id"`
	LoanItemID   *int64          `json:"loan_item_id,omitempty"`
	Type         FineType        `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description,omitempty"`
	Status       FineStatus      `json:"status"`
	WaiverReason string          `json:"waiver_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	WaivedAt     *time.Time      `json:"waived_at,omitempty"`
}
