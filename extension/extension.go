// Package extension provides the Forge extension adapter for Teller.
//
// It implements the forge.Extension interface to integrate Teller
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.teller" or "teller" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	teller "github.com/xraph/teller"
	"github.com/xraph/teller/store"
	"github.com/xraph/teller/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "teller"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Retail banking ledger and settlement core"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Teller as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *teller.Teller
	store      store.Store
	tellerOpts []teller.Option
}

// New creates a new Teller Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Teller instance.
// This is nil until Register is called.
func (e *Extension) Engine() *teller.Teller { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the teller engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build teller options from resolved config.
	opts, err := e.buildTellerOpts()
	if err != nil {
		return err
	}

	eng := teller.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*teller.Teller, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("teller: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("teller: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildTellerOpts constructs teller.Option values from the resolved config.
func (e *Extension) buildTellerOpts() ([]teller.Option, error) {
	opts := make([]teller.Option, 0, len(e.tellerOpts)+3)

	if e.config.Currency != "" {
		opts = append(opts, teller.WithCurrency(e.config.Currency))
	}

	switch e.config.OverpaymentPolicy {
	case "", "reject":
		// Engine default.
	case "clamp":
		opts = append(opts, teller.WithOverpaymentPolicy(teller.OverpaymentClamp))
	default:
		return nil, errors.New("teller: unknown overpayment_policy " + e.config.OverpaymentPolicy)
	}

	if e.config.ReconcileInterval > 0 {
		opts = append(opts, teller.WithReconcileInterval(e.config.ReconcileInterval))
	}

	// Append any pass-through teller options.
	opts = append(opts, e.tellerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("teller: configuration is required but not found in config files; " +
				"ensure 'extensions.teller' or 'teller' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("teller: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("overpayment_policy", e.config.OverpaymentPolicy),
		forge.F("reconcile_interval", e.config.ReconcileInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.teller" first (namespaced pattern).
	if cm.IsSet("extensions.teller") {
		if err := cm.Bind("extensions.teller", &cfg); err == nil {
			e.Logger().Debug("teller: loaded config from file",
				forge.F("key", "extensions.teller"),
			)
			return cfg, true
		}
		e.Logger().Warn("teller: failed to bind extensions.teller config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "teller" key.
	if cm.IsSet("teller") {
		if err := cm.Bind("teller", &cfg); err == nil {
			e.Logger().Debug("teller: loaded config from file",
				forge.F("key", "teller"),
			)
			return cfg, true
		}
		e.Logger().Warn("teller: failed to bind teller config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.OverpaymentPolicy == "" {
		cfg.OverpaymentPolicy = defaults.OverpaymentPolicy
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.OverpaymentPolicy == "" && programmaticConfig.OverpaymentPolicy != "" {
		yamlConfig.OverpaymentPolicy = programmaticConfig.OverpaymentPolicy
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ReconcileInterval == 0 && programmaticConfig.ReconcileInterval != 0 {
		yamlConfig.ReconcileInterval = programmaticConfig.ReconcileInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
