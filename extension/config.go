package extension

import "time"

// Config holds the Teller extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.teller" or "teller" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the operating currency for all settlements (default: "usd").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// OverpaymentPolicy controls how credit card payments above the
	// outstanding debt are handled: "reject" or "clamp" (default: "reject").
	OverpaymentPolicy string `json:"overpayment_policy" mapstructure:"overpayment_policy" yaml:"overpayment_policy"`

	// ReconcileInterval is how frequently the background reconciliation
	// worker runs. Zero disables the worker; call Reconcile from an
	// external scheduler instead (default: 0).
	ReconcileInterval time.Duration `json:"reconcile_interval" mapstructure:"reconcile_interval" yaml:"reconcile_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:          "usd",
		OverpaymentPolicy: "reject",
	}
}
