// Package observability provides a metrics extension for Teller that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/teller/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated         = (*MetricsExtension)(nil)
	_ plugin.OnAccountDeactivated     = (*MetricsExtension)(nil)
	_ plugin.OnLoanCreated            = (*MetricsExtension)(nil)
	_ plugin.OnCardIssued             = (*MetricsExtension)(nil)
	_ plugin.OnSettlementCompleted    = (*MetricsExtension)(nil)
	_ plugin.OnSettlementRejected     = (*MetricsExtension)(nil)
	_ plugin.OnCardDeclined           = (*MetricsExtension)(nil)
	_ plugin.OnBeneficiaryAdded       = (*MetricsExtension)(nil)
	_ plugin.OnBeneficiaryRemoved     = (*MetricsExtension)(nil)
	_ plugin.OnInstallmentsReconciled = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Teller plugin to automatically track ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Onboarding metrics
	AccountsOpened      Counter
	AccountsDeactivated Counter
	LoansOpened         Counter
	CardsIssued         Counter

	// Settlement metrics
	SettlementsCompleted Counter
	SettlementsRejected  Counter
	CardsDeclined        Counter

	// Beneficiary metrics
	BeneficiariesAdded   Counter
	BeneficiariesRemoved Counter

	// Reconciliation metrics
	ReconcilePasses  Counter
	ReconcileLatency Histogram

	// Error metrics
	StoreErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Onboarding metrics
		AccountsOpened:      factory.Counter("teller.account.opened"),
		AccountsDeactivated: factory.Counter("teller.account.deactivated"),
		LoansOpened:         factory.Counter("teller.loan.opened"),
		CardsIssued:         factory.Counter("teller.card.issued"),

		// Settlement metrics
		SettlementsCompleted: factory.Counter("teller.settlement.completed"),
		SettlementsRejected:  factory.Counter("teller.settlement.rejected"),
		CardsDeclined:        factory.Counter("teller.card.declined"),

		// Beneficiary metrics
		BeneficiariesAdded:   factory.Counter("teller.beneficiary.added"),
		BeneficiariesRemoved: factory.Counter("teller.beneficiary.removed"),

		// Reconciliation metrics
		ReconcilePasses:  factory.Counter("teller.reconcile.passes"),
		ReconcileLatency: factory.Histogram("teller.reconcile.latency_ms"),

		// Error metrics
		StoreErrors: factory.Counter("teller.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Onboarding lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ interface{}) error {
	m.AccountsOpened.Inc()
	return nil
}

// OnAccountDeactivated implements plugin.OnAccountDeactivated.
func (m *MetricsExtension) OnAccountDeactivated(_ context.Context, _ string) error {
	m.AccountsDeactivated.Inc()
	return nil
}

// OnLoanCreated implements plugin.OnLoanCreated.
func (m *MetricsExtension) OnLoanCreated(_ context.Context, _ interface{}) error {
	m.LoansOpened.Inc()
	return nil
}

// OnCardIssued implements plugin.OnCardIssued.
func (m *MetricsExtension) OnCardIssued(_ context.Context, _ interface{}) error {
	m.CardsIssued.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnSettlementCompleted implements plugin.OnSettlementCompleted.
func (m *MetricsExtension) OnSettlementCompleted(_ context.Context, _ string, _ interface{}) error {
	m.SettlementsCompleted.Inc()
	return nil
}

// OnSettlementRejected implements plugin.OnSettlementRejected.
func (m *MetricsExtension) OnSettlementRejected(_ context.Context, _, _ string, _ error) error {
	m.SettlementsRejected.Inc()
	return nil
}

// OnCardDeclined implements plugin.OnCardDeclined.
func (m *MetricsExtension) OnCardDeclined(_ context.Context, _ string, _ error) error {
	m.CardsDeclined.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Beneficiary lifecycle hooks
// ──────────────────────────────────────────────────

// OnBeneficiaryAdded implements plugin.OnBeneficiaryAdded.
func (m *MetricsExtension) OnBeneficiaryAdded(_ context.Context, _ interface{}) error {
	m.BeneficiariesAdded.Inc()
	return nil
}

// OnBeneficiaryRemoved implements plugin.OnBeneficiaryRemoved.
func (m *MetricsExtension) OnBeneficiaryRemoved(_ context.Context, _, _ string) error {
	m.BeneficiariesRemoved.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation lifecycle hooks
// ──────────────────────────────────────────────────

// OnInstallmentsReconciled implements plugin.OnInstallmentsReconciled.
func (m *MetricsExtension) OnInstallmentsReconciled(_ context.Context, _ interface{}, elapsed time.Duration) error {
	m.ReconcilePasses.Inc()
	m.ReconcileLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
