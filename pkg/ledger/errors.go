package ledger

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrRejected            = errors.New("rejected")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrTransferFailed      = errors.New("transfer failed")
)

// Rejections and transfer failures refine the kinds above and match them with errors.Is.
var (
	ErrCampaignClosed          = fmt.Errorf("%w: campaign closed", ErrRejected)
	ErrCapacityExceeded        = fmt.Errorf("%w: capacity exceeded", ErrRejected)
	ErrConsumptionExceedsSales = fmt.Errorf("%w: consumption exceeds sales", ErrRejected)
	ErrInsufficientEscrow      = fmt.Errorf("%w: insufficient escrow", ErrTransferFailed)
)

// Validation and configuration errors.
var (
	ErrInvalidCampaignID    = errors.New("invalid campaign id")
	ErrInvalidUnits         = errors.New("invalid units")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidBlockHeight   = errors.New("invalid block height")
	ErrInvalidEventType     = errors.New("invalid event type")
	ErrAmountOverflow       = errors.New("amount overflow")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrOwnerMismatch        = errors.New("owner mismatch")
	ErrLedgerNotInitialized = errors.New("ledger not initialized")
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
