package extension

import "time"

// Config holds the Arbiter extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.arbiter" or "arbiter" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for arbiter routes (default: "/arbiter").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// PermissionTTL overrides the engine's cached permission set TTL.
	PermissionTTL time.Duration `json:"permission_ttl" mapstructure:"permission_ttl" yaml:"permission_ttl"`

	// PrincipalTTL overrides the engine's cached principal record TTL.
	PrincipalTTL time.Duration `json:"principal_ttl" mapstructure:"principal_ttl" yaml:"principal_ttl"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PermissionTTL: 5 * time.Minute,
		PrincipalTTL:  time.Minute,
	}
}
