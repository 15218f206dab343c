// Package audithook bridges Teller lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on any
// particular audit system. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/teller/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Extension)(nil)
	_ plugin.OnAccountCreated         = (*Extension)(nil)
	_ plugin.OnAccountDeactivated     = (*Extension)(nil)
	_ plugin.OnLoanCreated            = (*Extension)(nil)
	_ plugin.OnCardIssued             = (*Extension)(nil)
	_ plugin.OnSettlementCompleted    = (*Extension)(nil)
	_ plugin.OnSettlementRejected     = (*Extension)(nil)
	_ plugin.OnCardDeclined           = (*Extension)(nil)
	_ plugin.OnBeneficiaryAdded       = (*Extension)(nil)
	_ plugin.OnBeneficiaryRemoved     = (*Extension)(nil)
	_ plugin.OnInstallmentsReconciled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so this package does not import any audit module directly;
// callers inject the concrete backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Teller lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Onboarding hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionAccountOpened, SeverityInfo, OutcomeSuccess,
		ResourceAccount, "", CategoryOnboarding, nil,
		"event", "account_opened",
	)
}

// OnAccountDeactivated implements plugin.OnAccountDeactivated.
func (e *Extension) OnAccountDeactivated(ctx context.Context, accountID string) error {
	return e.record(ctx, ActionAccountDeactivated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, accountID, CategoryOnboarding, nil,
		"account_id", accountID,
	)
}

// OnLoanCreated implements plugin.OnLoanCreated.
func (e *Extension) OnLoanCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionLoanOpened, SeverityInfo, OutcomeSuccess,
		ResourceLoan, "", CategoryOnboarding, nil,
		"event", "loan_opened",
	)
}

// OnCardIssued implements plugin.OnCardIssued.
func (e *Extension) OnCardIssued(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionCardIssued, SeverityInfo, OutcomeSuccess,
		ResourceCard, "", CategoryOnboarding, nil,
		"event", "card_issued",
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnSettlementCompleted implements plugin.OnSettlementCompleted.
func (e *Extension) OnSettlementCompleted(ctx context.Context, customerID string, _ interface{}) error {
	return e.record(ctx, ActionSettlementCompleted, SeverityInfo, OutcomeSuccess,
		ResourceSettlement, "", CategorySettlement, nil,
		"customer_id", customerID,
	)
}

// OnSettlementRejected implements plugin.OnSettlementRejected.
func (e *Extension) OnSettlementRejected(ctx context.Context, customerID, opType string, reason error) error {
	return e.record(ctx, ActionSettlementRejected, SeverityWarning, OutcomeFailure,
		ResourceSettlement, "", CategorySettlement, reason,
		"customer_id", customerID,
		"operation", opType,
	)
}

// OnCardDeclined implements plugin.OnCardDeclined.
func (e *Extension) OnCardDeclined(ctx context.Context, cardRef string, reason error) error {
	return e.record(ctx, ActionCardDeclined, SeverityWarning, OutcomeFailure,
		ResourceCard, cardRef, CategorySettlement, reason,
		"card_ref", cardRef,
	)
}

// ──────────────────────────────────────────────────
// Beneficiary hooks
// ──────────────────────────────────────────────────

// OnBeneficiaryAdded implements plugin.OnBeneficiaryAdded.
func (e *Extension) OnBeneficiaryAdded(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionBeneficiaryAdded, SeverityInfo, OutcomeSuccess,
		ResourceBeneficiary, "", CategoryOnboarding, nil,
		"event", "beneficiary_added",
	)
}

// OnBeneficiaryRemoved implements plugin.OnBeneficiaryRemoved.
func (e *Extension) OnBeneficiaryRemoved(ctx context.Context, customerID, accountNumber string) error {
	return e.record(ctx, ActionBeneficiaryRemoved, SeverityInfo, OutcomeSuccess,
		ResourceBeneficiary, accountNumber, CategoryOnboarding, nil,
		"customer_id", customerID,
		"account_number", accountNumber,
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnInstallmentsReconciled implements plugin.OnInstallmentsReconciled.
func (e *Extension) OnInstallmentsReconciled(ctx context.Context, stats interface{}, elapsed time.Duration) error {
	return e.record(ctx, ActionInstallmentsReconciled, SeverityInfo, OutcomeSuccess,
		ResourceInstallment, "", CategoryReconciliation, nil,
		"stats", stats,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
