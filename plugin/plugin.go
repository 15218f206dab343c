// Package plugin provides an extensible plugin system for Teller.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, t interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Onboarding hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a savings account is opened.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, acct interface{}) error
}

// OnAccountDeactivated is called when a savings account is deactivated.
type OnAccountDeactivated interface {
	Plugin
	OnAccountDeactivated(ctx context.Context, accountID string) error
}

// OnLoanCreated is called when a loan and its schedule are created.
type OnLoanCreated interface {
	Plugin
	OnLoanCreated(ctx context.Context, l interface{}) error
}

// OnCardIssued is called when a credit card is issued.
type OnCardIssued interface {
	Plugin
	OnCardIssued(ctx context.Context, c interface{}) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettlementCompleted is called after a settlement commits. txns carries
// the appended []*transaction.Transaction.
type OnSettlementCompleted interface {
	Plugin
	OnSettlementCompleted(ctx context.Context, customerID string, txns interface{}) error
}

// OnSettlementRejected is called when a settlement is refused for a business
// reason. Infrastructure failures do not emit this hook.
type OnSettlementRejected interface {
	Plugin
	OnSettlementRejected(ctx context.Context, customerID string, opType string, reason error) error
}

// OnCardDeclined is called when a commerce payment is declined.
type OnCardDeclined interface {
	Plugin
	OnCardDeclined(ctx context.Context, cardRef string, reason error) error
}

// ──────────────────────────────────────────────────
// Beneficiary hooks
// ──────────────────────────────────────────────────

// OnBeneficiaryAdded is called when a beneficiary is registered.
type OnBeneficiaryAdded interface {
	Plugin
	OnBeneficiaryAdded(ctx context.Context, b interface{}) error
}

// OnBeneficiaryRemoved is called when a beneficiary is removed.
type OnBeneficiaryRemoved interface {
	Plugin
	OnBeneficiaryRemoved(ctx context.Context, customerID, accountNumber string) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnInstallmentsReconciled is called after a reconciliation pass commits.
// stats carries the store.ReconcileStats of the pass.
type OnInstallmentsReconciled interface {
	Plugin
	OnInstallmentsReconciled(ctx context.Context, stats interface{}, elapsed time.Duration) error
}
