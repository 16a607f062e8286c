package extension

import (
	"time"

	"github.com/xraph/grove"

	licensing "github.com/xraph/licensing"
	"github.com/xraph/licensing/audit_hook"
	"github.com/xraph/licensing/observability"
	"github.com/xraph/licensing/plugin"
	"github.com/xraph/licensing/store"
)

// Option configures the licensing Forge extension.
type Option func(*Extension)

// WithStore sets the store for the registry. It takes precedence over
// WithGroveDB and Config.Driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB sets the database the store backend named by Config.Driver
// is built on.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithRegistryOption passes a licensing.Option through to the underlying registry.
func WithRegistryOption(opt licensing.Option) Option {
	return func(e *Extension) {
		e.registryOpts = append(e.registryOpts, opt)
	}
}

// WithPlugin registers a registry plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.registryOpts = append(e.registryOpts, licensing.WithPlugin(p))
	}
}

// WithMetricFactory registers the metrics plugin on factory.
func WithMetricFactory(factory observability.MetricFactory) Option {
	return WithPlugin(observability.NewMetricsExtension(factory))
}

// WithAuditRecorder registers the audit trail plugin writing to r.
func WithAuditRecorder(r audit_hook.Recorder, opts ...audit_hook.Option) Option {
	return WithPlugin(audit_hook.New(r, opts...))
}

// WithFeeChecker sets the collaborator that confirms issuance fees were paid.
func WithFeeChecker(fc licensing.FeeChecker) Option {
	return WithRegistryOption(licensing.WithFeeChecker(fc))
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

// WithContractID sets the contract served by the registry.
func WithContractID(contractID string) Option {
	return func(e *Extension) { e.config.ContractID = contractID }
}

// WithIssuer sets the issuer address.
func WithIssuer(issuer string) Option {
	return func(e *Extension) { e.config.Issuer = issuer }
}

// WithRootAuthority sets the initial root authority address.
func WithRootAuthority(root string) Option {
	return func(e *Extension) { e.config.RootAuthority = root }
}

// WithDriver selects the store backend built over the grove database.
func WithDriver(driver string) Option {
	return func(e *Extension) { e.config.Driver = driver }
}

// WithReplayPageSize sets how many records are read per store call on replay.
func WithReplayPageSize(n int) Option {
	return func(e *Extension) { e.config.ReplayPageSize = n }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
