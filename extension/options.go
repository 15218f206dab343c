package extension

import (
	"time"

	teller "github.com/xraph/teller"
	"github.com/xraph/teller/plugin"
	"github.com/xraph/teller/store"
)

// Option configures the Teller Forge extension.
type Option func(*Extension)

// WithStore sets the store for the teller engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTellerOption passes a teller.Option through to the underlying engine.
func WithTellerOption(opt teller.Option) Option {
	return func(e *Extension) {
		e.tellerOpts = append(e.tellerOpts, opt)
	}
}

// WithPlugin registers a teller plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.tellerOpts = append(e.tellerOpts, teller.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the operating currency for all settlements.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithOverpaymentPolicy sets the card overpayment policy ("reject" or "clamp").
func WithOverpaymentPolicy(policy string) Option {
	return func(e *Extension) { e.config.OverpaymentPolicy = policy }
}

// WithReconcileInterval sets how frequently the background reconciliation
// worker runs. Zero disables the worker.
func WithReconcileInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ReconcileInterval = d }
}
