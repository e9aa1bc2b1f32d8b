// Package finepolicy computes fine amounts. It is pure: nothing here touches
// a loan, a fine record, or the database.
package finepolicy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

// Damage severity bounds, in percent.
const (
	MinDamagePercent  = 10
	MaxDamagePercent  = 90
	DamagePercentStep = 10
)

// Policy holds the fee constants.
type Policy struct {
	// LateFeePerDay is charged per whole day past the due date.
	LateFeePerDay decimal.Decimal
	// DamageFeeRate scales the book price before the damage severity is applied.
	DamageFeeRate decimal.Decimal
	// LostBookFeeRate scales the book price for a lost copy.
	LostBookFeeRate decimal.Decimal
	// Currency is the ISO code recorded on fines.
	Currency string
	// CurrencyExponent is the number of minor-unit digits amounts are rounded to.
	CurrencyExponent int32
}

// DefaultPolicy returns the library's standard fee schedule.
func DefaultPolicy() Policy {
	return Policy{
		LateFeePerDay:    decimal.NewFromInt(5000),
		DamageFeeRate:    decimal.RequireFromString("0.3"),
		LostBookFeeRate:  decimal.NewFromInt(1),
		Currency:         "VND",
		CurrencyExponent: 0,
	}
}

// Validate checks that the policy constants are usable.
func (p Policy) Validate() error {
	if p.LateFeePerDay.IsNegative() {
		return fmt.Errorf("late fee per day must not be negative")
	}
	if p.DamageFeeRate.IsNegative() {
		return fmt.Errorf("damage fee rate must not be negative")
	}
	if p.LostBookFeeRate.IsNegative() {
		return fmt.Errorf("lost book fee rate must not be negative")
	}
	if p.Currency == "" {
		return fmt.Errorf("currency required")
	}
	if p.CurrencyExponent < 0 || p.CurrencyExponent > 4 {
		return fmt.Errorf("currency exponent %d out of range", p.CurrencyExponent)
	}
	return nil
}

// Assessment is the input to a fine computation.
type Assessment struct {
	Type          model.FineType
	BookPrice     decimal.Decimal
	DamagePercent int
	DaysOverdue   int
}

// Compute returns the fine amount for one copy (or one loan, for late returns),
// rounded half-up to the currency's minor unit.
func (p Policy) Compute(a Assessment) (decimal.Decimal, error) {
	var amount decimal.Decimal

	switch a.Type {
	case model.FineLateReturn:
		if a.DaysOverdue < 0 {
			return decimal.Zero, model.InvalidInput("days overdue must not be negative")
		}
		amount = p.LateFeePerDay.Mul(decimal.NewFromInt(int64(a.DaysOverdue)))
	case model.FineDamage:
		if err := ValidateDamagePercent(a.DamagePercent); err != nil {
			return decimal.Zero, err
		}
		severity := decimal.NewFromInt(int64(a.DamagePercent)).Div(decimal.NewFromInt(100))
		amount = a.BookPrice.Mul(p.DamageFeeRate).Mul(severity)
	case model.FineLoss:
		amount = a.BookPrice.Mul(p.LostBookFeeRate)
	default:
		return decimal.Zero, model.InvalidInput("unknown fine type %q", a.Type)
	}

	return p.Round(amount), nil
}

// ComputeFine is a convenience wrapper for price-based fines.
func (p Policy) ComputeFine(fineType model.FineType, bookPrice decimal.Decimal, damagePercent int) (decimal.Decimal, error) {
	return p.Compute(Assessment{Type: fineType, BookPrice: bookPrice, DamagePercent: damagePercent})
}

// Round rounds half-up to the currency's minor unit. Fine amounts are never
// negative, so rounding half away from zero is rounding half up.
func (p Policy) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(p.CurrencyExponent)
}

// ValidateDamagePercent accepts 10, 20, ..., 90.
func ValidateDamagePercent(percent int) error {
	if percent < MinDamagePercent || percent > MaxDamagePercent || percent%DamagePercentStep != 0 {
		return fmt.Errorf("%w: %d%% (must be %d-%d in steps of %d)",
			model.ErrInvalidDamageLevel, percent, MinDamagePercent, MaxDamagePercent, DamagePercentStep)
	}
	return nil
}

// DaysOverdue returns the whole days between due and returned, with a minimum
// of one day when returned is after due at all.
func DaysOverdue(due, returned time.Time) int {
	if !returned.After(due) {
		return 0
	}
	days := int(returned.Sub(due) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}
