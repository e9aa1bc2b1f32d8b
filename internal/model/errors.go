package model

import (
	"errors"
	"fmt"
)

// Lending error taxonomy. Every rejected command wraps exactly one of these.
var (
	ErrInvalidState           = errors.New("invalid state")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidExtensionLength = errors.New("invalid extension length")
	ErrInvalidDamageLevel     = errors.New("invalid damage level")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
)

// Entity names used in error context.
const (
	EntityLoan      = "loan"
	EntityExtension = "extension"
	EntityFine      = "fine"
	EntityBook      = "book"
	EntityUser      = "user"
)

// TransitionError reports an operation that is not legal from the entity's
// current status.
type TransitionError struct {
	Entity string
	ID     int64
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %d: status is %s", e.Action, e.Entity, e.ID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidState }

// StockError reports a reservation that exceeds the shelf count of a book.
type StockError struct {
	BookID    int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %d: have %d, need %d", e.BookID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound returns a NotFoundError for entity/id.
func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidInput wraps ErrInvalidInput with a message.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
