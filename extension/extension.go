// Package extension provides the Forge extension adapter for the license
// registry.
//
// It implements the forge.Extension interface to integrate the registry
// into a Forge application with store selection, DI registration and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.licensing" or
// "licensing" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/store"
	"github.com/xraph/licensing/store/memory"
	"github.com/xraph/licensing/store/mongo"
	"github.com/xraph/licensing/store/postgres"
	"github.com/xraph/licensing/store/sqlite"
	"github.com/xraph/licensing/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "licensing"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "License issuance registry with an append-only audit log"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the license registry as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	registry     *licensing.Registry
	store        store.Store
	groveDB      *grove.DB
	registryOpts []licensing.Option
}

// New creates a new licensing Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the underlying registry.
// This is nil until Register is called.
func (e *Extension) Registry() *licensing.Registry { return e.registry }

// Register implements [forge.Extension]. It loads configuration, builds
// the store and the registry, and registers the registry in the DI
// container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildRegistryOpts()
	if err != nil {
		return err
	}

	e.registry = licensing.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*licensing.Registry, error) {
		return e.registry, nil
	})
}

// Start implements [forge.Extension]. It replays the record log; unless
// migrations are disabled the store is migrated first.
func (e *Extension) Start(ctx context.Context) error {
	if e.registry == nil {
		return errors.New("licensing: extension not initialized")
	}

	if err := e.registry.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.registry != nil {
		if err := e.registry.Stop(); err != nil {
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
		return errors.New("licensing: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore constructs the backend named by the configured driver.
func (e *Extension) buildStore() (store.Store, error) {
	driver := e.config.Driver
	if driver == "" || driver == DriverMemory {
		return memory.New(), nil
	}
	if e.groveDB == nil {
		return nil, fmt.Errorf("licensing: driver %q requires a grove database (use WithGroveDB)", driver)
	}

	switch driver {
	case DriverSQLite:
		return sqlite.New(e.groveDB), nil
	case DriverPostgres:
		return postgres.New(e.groveDB), nil
	case DriverMongo:
		return mongo.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("licensing: unknown store driver %q", driver)
	}
}

// buildRegistryOpts constructs licensing.Option values from the resolved config.
func (e *Extension) buildRegistryOpts() ([]licensing.Option, error) {
	opts := make([]licensing.Option, 0, len(e.registryOpts)+6)

	if e.config.ContractID != "" {
		contractID, err := licensing.ParseContractID(e.config.ContractID)
		if err != nil {
			return nil, fmt.Errorf("licensing: contract_id: %w", err)
		}
		opts = append(opts, licensing.WithContractID(contractID))
	}

	issuer, err := types.ParseAddress(e.config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("licensing: issuer: %w", err)
	}
	if !issuer.IsNull() {
		opts = append(opts, licensing.WithIssuer(issuer))
	}

	root, err := types.ParseAddress(e.config.RootAuthority)
	if err != nil {
		return nil, fmt.Errorf("licensing: root_authority: %w", err)
	}
	if !root.IsNull() {
		opts = append(opts, licensing.WithRootAuthority(root))
	}

	if e.config.ReplayPageSize > 0 {
		opts = append(opts, licensing.WithReplayPageSize(e.config.ReplayPageSize))
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, licensing.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.DisableMigrate {
		opts = append(opts, licensing.WithSkipMigrate())
	}

	// Pass-through options go last so they override config-derived ones.
	opts = append(opts, e.registryOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("licensing: configuration is required but not found in config files; " +
				"ensure 'extensions.licensing' or 'licensing' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("licensing: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("contract_id", e.config.ContractID),
		forge.F("issuer", e.config.Issuer),
		forge.F("root_authority", e.config.RootAuthority),
		forge.F("driver", e.config.Driver),
		forge.F("replay_page_size", e.config.ReplayPageSize),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.licensing", "licensing"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("licensing: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("licensing: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.ReplayPageSize == 0 {
		cfg.ReplayPageSize = defaults.ReplayPageSize
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.ContractID == "" {
		yamlConfig.ContractID = programmaticConfig.ContractID
	}
	if yamlConfig.Issuer == "" {
		yamlConfig.Issuer = programmaticConfig.Issuer
	}
	if yamlConfig.RootAuthority == "" {
		yamlConfig.RootAuthority = programmaticConfig.RootAuthority
	}
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ReplayPageSize == 0 {
		yamlConfig.ReplayPageSize = programmaticConfig.ReplayPageSize
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
