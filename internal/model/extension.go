package model

import "time"

// ExtensionStatus is the lifecycle state of a due-date extension request.
type ExtensionStatus string

// Extension statuses.
const (
	ExtensionPending  ExtensionStatus = "PENDING"
	ExtensionApproved ExtensionStatus = "APPROVED"
	ExtensionRejected ExtensionStatus = "REJECTED"
)

// CanTransitionTo reports whether an extension may move from s to next.
func (s ExtensionStatus) CanTransitionTo(next ExtensionStatus) bool {
	switch s {
	case ExtensionPending:
		return next == ExtensionApproved || next == ExtensionRejected
	case ExtensionApproved, ExtensionRejected:
		return false
	}
	return false
}

// ExtensionRequest asks to push a loan's due date out by Days. NewDueDate is
// fixed when the request is made.
type ExtensionRequest struct {
	ID             int64           `json:"id"`
	LoanID         int64           `json:"loan_id"`
	Days           int             `json:"days"`
	Reason         string          `json:"reason,omitempty"`
	CurrentDueDate time.Time       `json:"current_due_date"`
	NewDueDate     time.Time       `json:"new_due_date"`
	Status         ExtensionStatus `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}
