package extension

import "time"

// Driver names accepted in Config.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the licensing extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.licensing" or "licensing" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// ContractID is the TypeID (lic_…) of the contract whose record log
	// the registry serves. Leave empty only for throwaway in-memory setups:
	// a fresh contract is created on every start.
	ContractID string `json:"contract_id" mapstructure:"contract_id" yaml:"contract_id"`

	// Issuer is the only address allowed to issue and revoke.
	Issuer string `json:"issuer" mapstructure:"issuer" yaml:"issuer"`

	// RootAuthority administers the contract (default: the issuer).
	RootAuthority string `json:"root_authority" mapstructure:"root_authority" yaml:"root_authority"`

	// Driver selects the store backend built over the grove.DB passed with
	// WithGroveDB: "memory" (default), "sqlite", "postgres" or "mongo".
	// Ignored when WithStore is used.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// ReplayPageSize is the number of records read per store call while
	// replaying the log (default: 500).
	ReplayPageSize int `json:"replay_page_size" mapstructure:"replay_page_size" yaml:"replay_page_size"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:         DriverMemory,
		ReplayPageSize: 500,
		PluginTimeout:  5 * time.Second,
	}
}
