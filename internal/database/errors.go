package database

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassDeadlock:
		return "deadlock"
	case ErrorClassSerialization:
		return "serialization"
	default:
		return "permanent"
	}
}

// ClassifyError decides whether a failed transaction is worth replaying.
// Anything that is not a recognised Postgres concurrency failure is permanent.
func ClassifyError(err error) ErrorClass {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ErrorClassPermanent
	}

	switch string(pqErr.Code) {
	case pgerrcode.SerializationFailure:
		return ErrorClassSerialization
	case pgerrcode.DeadlockDetected:
		return ErrorClassDeadlock
	case pgerrcode.LockNotAvailable:
		return ErrorClassTransient
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	return ClassifyError(err) != ErrorClassPermanent
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.ForeignKeyViolation
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrProposalNotFound = errors.New("custom proposal not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrVoucherNotFound  = errors.New("voucher not found")
	ErrTokenNotFound    = errors.New("token not found")

	ErrProposalNotOwned     = errors.New("custom proposal belongs to another customer")
	ErrProposalAlreadyTaken = errors.New("custom proposal already ordered")

	ErrVoucherUsed     = errors.New("voucher has already been used")
	ErrVoucherExpired  = errors.New("voucher has expired")
	ErrVoucherInactive = errors.New("voucher is not active")

	ErrNoOrderableItems = errors.New("none of the requested items could be ordered")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrEmailTaken       = errors.New("email already registered")
	ErrUnauthenticated  = errors.New("unauthenticated")
)
