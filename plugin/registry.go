package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onAccountCreated         []OnAccountCreated
	onAccountDeactivated     []OnAccountDeactivated
	onLoanCreated            []OnLoanCreated
	onCardIssued             []OnCardIssued
	onSettlementCompleted    []OnSettlementCompleted
	onSettlementRejected     []OnSettlementRejected
	onCardDeclined           []OnCardDeclined
	onBeneficiaryAdded       []OnBeneficiaryAdded
	onBeneficiaryRemoved     []OnBeneficiaryRemoved
	onInstallmentsReconciled []OnInstallmentsReconciled
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnAccountDeactivated); ok {
		r.onAccountDeactivated = append(r.onAccountDeactivated, v)
	}
	if v, ok := p.(OnLoanCreated); ok {
		r.onLoanCreated = append(r.onLoanCreated, v)
	}
	if v, ok := p.(OnCardIssued); ok {
		r.onCardIssued = append(r.onCardIssued, v)
	}
	if v, ok := p.(OnSettlementCompleted); ok {
		r.onSettlementCompleted = append(r.onSettlementCompleted, v)
	}
	if v, ok := p.(OnSettlementRejected); ok {
		r.onSettlementRejected = append(r.onSettlementRejected, v)
	}
	if v, ok := p.(OnCardDeclined); ok {
		r.onCardDeclined = append(r.onCardDeclined, v)
	}
	if v, ok := p.(OnBeneficiaryAdded); ok {
		r.onBeneficiaryAdded = append(r.onBeneficiaryAdded, v)
	}
	if v, ok := p.(OnBeneficiaryRemoved); ok {
		r.onBeneficiaryRemoved = append(r.onBeneficiaryRemoved, v)
	}
	if v, ok := p.(OnInstallmentsReconciled); ok {
		r.onInstallmentsReconciled = append(r.onInstallmentsReconciled, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnAccountCreated)(nil)).Elem(), "OnAccountCreated")
	checkInterface(reflect.TypeOf((*OnLoanCreated)(nil)).Elem(), "OnLoanCreated")
	checkInterface(reflect.TypeOf((*OnCardIssued)(nil)).Elem(), "OnCardIssued")
	checkInterface(reflect.TypeOf((*OnSettlementCompleted)(nil)).Elem(), "OnSettlementCompleted")
	checkInterface(reflect.TypeOf((*OnSettlementRejected)(nil)).Elem(), "OnSettlementRejected")
	checkInterface(reflect.TypeOf((*OnCardDeclined)(nil)).Elem(), "OnCardDeclined")
	checkInterface(reflect.TypeOf((*OnBeneficiaryAdded)(nil)).Elem(), "OnBeneficiaryAdded")
	checkInterface(reflect.TypeOf((*OnInstallmentsReconciled)(nil)).Elem(), "OnInstallmentsReconciled")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, acct interface{}) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountCreated(ctx, acct)
		}); err != nil {
			r.logger.Warn("plugin OnAccountCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountDeactivated emits an account deactivated event.
func (r *Registry) EmitAccountDeactivated(ctx context.Context, accountID string) {
	r.mu.RLock()
	plugins := r.onAccountDeactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountDeactivated(ctx, accountID)
		}); err != nil {
			r.logger.Warn("plugin OnAccountDeactivated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLoanCreated emits a loan created event.
func (r *Registry) EmitLoanCreated(ctx context.Context, l interface{}) {
	r.mu.RLock()
	plugins := r.onLoanCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLoanCreated(ctx, l)
		}); err != nil {
			r.logger.Warn("plugin OnLoanCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCardIssued emits a card issued event.
func (r *Registry) EmitCardIssued(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onCardIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCardIssued(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCardIssued failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementCompleted emits a settlement completed event.
func (r *Registry) EmitSettlementCompleted(ctx context.Context, customerID string, txns interface{}) {
	r.mu.RLock()
	plugins := r.onSettlementCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementCompleted(ctx, customerID, txns)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementRejected emits a settlement rejected event.
func (r *Registry) EmitSettlementRejected(ctx context.Context, customerID, opType string, reason error) {
	r.mu.RLock()
	plugins := r.onSettlementRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementRejected(ctx, customerID, opType, reason)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCardDeclined emits a card declined event.
func (r *Registry) EmitCardDeclined(ctx context.Context, cardRef string, reason error) {
	r.mu.RLock()
	plugins := r.onCardDeclined
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCardDeclined(ctx, cardRef, reason)
		}); err != nil {
			r.logger.Warn("plugin OnCardDeclined failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBeneficiaryAdded emits a beneficiary added event.
func (r *Registry) EmitBeneficiaryAdded(ctx context.Context, b interface{}) {
	r.mu.RLock()
	plugins := r.onBeneficiaryAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBeneficiaryAdded(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBeneficiaryAdded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBeneficiaryRemoved emits a beneficiary removed event.
func (r *Registry) EmitBeneficiaryRemoved(ctx context.Context, customerID, accountNumber string) {
	r.mu.RLock()
	plugins := r.onBeneficiaryRemoved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBeneficiaryRemoved(ctx, customerID, accountNumber)
		}); err != nil {
			r.logger.Warn("plugin OnBeneficiaryRemoved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInstallmentsReconciled emits a reconciliation pass event.
func (r *Registry) EmitInstallmentsReconciled(ctx context.Context, stats interface{}, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onInstallmentsReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInstallmentsReconciled(ctx, stats, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnInstallmentsReconciled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
