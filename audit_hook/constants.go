package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountOpened      = "account.opened"
	ActionAccountDeactivated = "account.deactivated"

	// Loan actions
	ActionLoanOpened = "loan.opened"

	// Card actions
	ActionCardIssued   = "card.issued"
	ActionCardDeclined = "card.declined"

	// Settlement actions
	ActionSettlementCompleted = "settlement.completed"
	ActionSettlementRejected  = "settlement.rejected"

	// Beneficiary actions
	ActionBeneficiaryAdded   = "beneficiary.added"
	ActionBeneficiaryRemoved = "beneficiary.removed"

	// Reconciliation actions
	ActionInstallmentsReconciled = "installments.reconciled"
)

// Resource constants for audit events.
const (
	ResourceAccount     = "account"
	ResourceLoan        = "loan"
	ResourceCard        = "card"
	ResourceBeneficiary = "beneficiary"
	ResourceSettlement  = "settlement"
	ResourceInstallment = "installment"
)

// Category constants for audit events.
const (
	CategoryOnboarding     = "onboarding"
	CategorySettlement     = "settlement"
	CategoryReconciliation = "reconciliation"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
