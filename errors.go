package teller

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("teller: not found")
	ErrAlreadyExists = errors.New("teller: already exists")
	ErrInvalidInput  = errors.New("teller: invalid input")

	// Account errors
	ErrAccountNotFound     = errors.New("teller: account not found")
	ErrAccountInactive     = errors.New("teller: account is inactive")
	ErrInsufficientFunds   = errors.New("teller: insufficient funds")
	ErrPrincipalExists     = errors.New("teller: customer already has a principal account")
	ErrDestinationNotFound = errors.New("teller: destination account not found")

	// Loan errors
	ErrLoanNotFound        = errors.New("teller: loan not found")
	ErrLoanInactive        = errors.New("teller: loan is inactive")
	ErrInstallmentNotFound = errors.New("teller: installment not found")
	ErrInstallmentPaid     = errors.New("teller: installment already paid")

	// Card errors
	ErrCardNotFound        = errors.New("teller: card not found")
	ErrCardInactive        = errors.New("teller: card is inactive")
	ErrCreditLimitExceeded = errors.New("teller: credit limit exceeded")
	ErrPaymentExceedsDebt  = errors.New("teller: payment exceeds current debt")
	ErrCardDeclined        = errors.New("teller: card declined")

	// Beneficiary errors
	ErrBeneficiaryNotFound      = errors.New("teller: beneficiary not found")
	ErrBeneficiaryExists        = errors.New("teller: beneficiary already registered")
	ErrBeneficiaryNotRegistered = errors.New("teller: destination is not a registered beneficiary")

	// Commerce errors
	ErrCommerceNotFound = errors.New("teller: commerce not found")
	ErrCommerceInactive = errors.New("teller: commerce is inactive")

	// Transaction errors
	ErrTransactionNotFound = errors.New("teller: transaction not found")

	// Store errors
	ErrStoreNotReady    = errors.New("teller: store not ready")
	ErrStoreClosed      = errors.New("teller: store is closed")
	ErrSettlementFailed = errors.New("teller: settlement failed")
	ErrMigrationFailed  = errors.New("teller: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("teller: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match ValidationError against ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "teller: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("teller: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrCardNotFound) ||
		errors.Is(err, ErrBeneficiaryNotFound) ||
		errors.Is(err, ErrCommerceNotFound) ||
		errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrDestinationNotFound)
}

// IsRejection returns true if the error is a business outcome the caller can
// surface to the customer, as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrCreditLimitExceeded) ||
		errors.Is(err, ErrPaymentExceedsDebt) ||
		errors.Is(err, ErrCardDeclined) ||
		errors.Is(err, ErrBeneficiaryNotRegistered) ||
		errors.Is(err, ErrBeneficiaryExists) ||
		errors.Is(err, ErrAccountInactive) ||
		errors.Is(err, ErrCardInactive) ||
		errors.Is(err, ErrLoanInactive) ||
		errors.Is(err, ErrCommerceInactive) ||
		errors.Is(err, ErrInstallmentPaid) ||
		errors.Is(err, ErrPrincipalExists) ||
		errors.Is(err, ErrInvalidInput)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrSettlementFailed)
}
