package wager

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the wager service.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateWager       = errors.New("duplicate pending wager")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account already exists")
	ErrWagerNotFound        = errors.New("wager not found")
	ErrNotOwner             = errors.New("wager owned by another user")
	ErrWagerNotPending      = errors.New("wager no longer pending")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrUnknownSelection     = errors.New("unknown selection")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidEventID       = errors.New("invalid event id")
	ErrInvalidWagerID       = errors.New("invalid wager id")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrInvalidAmountCents   = errors.New("invalid amount cents")
	ErrInvalidStakeCents    = errors.New("invalid stake cents")
	ErrInvalidPrice         = errors.New("invalid moneyline price")
	ErrInvalidWagerState    = errors.New("invalid wager state")
	ErrInvalidOutcome       = errors.New("invalid outcome")
	ErrInvalidLedgerReason  = errors.New("invalid ledger reason")
	ErrInvalidMetadataJSON  = errors.New("invalid metadata json")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrInvalidBalance       = errors.New("invalid balance")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
