package lending

import (
	"fmt"
	"slices"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

// Policy holds the lending rules that are not about money.
type Policy struct {
	// LoanPeriod is added to the creation time when a loan has no due date.
	LoanPeriod time.Duration
	// MaxCopiesPerLoan caps the copies of one loan. Zero means no cap.
	MaxCopiesPerLoan int
	// ExtensionDays lists the accepted extension lengths.
	ExtensionDays []int
}

// DefaultPolicy returns a two-week loan period, five copies per loan and
// extensions of one to four weeks (30 days for the last).
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:       14 * 24 * time.Hour,
		MaxCopiesPerLoan: 5,
		ExtensionDays:    []int{7, 14, 21, 30},
	}
}

// Validate checks the policy for values the service cannot work with.
func (p Policy) Validate() error {
	if p.LoanPeriod <= 0 {
		return fmt.Errorf("loan period must be positive")
	}
	if p.MaxCopiesPerLoan < 0 {
		return fmt.Errorf("max copies per loan must not be negative")
	}
	if len(p.ExtensionDays) == 0 {
		return fmt.Errorf("at least one extension length is required")
	}
	for _, d := range p.ExtensionDays {
		if d <= 0 {
			return fmt.Errorf("extension length %d must be positive", d)
		}
	}
	return nil
}

// CheckExtensionDays fails with ErrInvalidExtensionLength unless days is one
// of the accepted lengths.
func (p Policy) CheckExtensionDays(days int) error {
	if !slices.Contains(p.ExtensionDays, days) {
		return fmt.Errorf("%w: %d days (allowed: %v)", model.ErrInvalidExtensionLength, days, p.ExtensionDays)
	}
	return nil
}
