package arbiter

import "time"

// Config holds configuration for the Arbiter engine.
type Config struct {
	// PermissionTTL is the time-to-live for cached effective permission
	// sets. Defaults to 5 minutes.
	PermissionTTL time.Duration `json:"permission_ttl,omitempty"`

	// PrincipalTTL is the time-to-live for cached principal records.
	// Independent of PermissionTTL. Defaults to 1 minute.
	PrincipalTTL time.Duration `json:"principal_ttl,omitempty"`

	// EnableDecisionLog records every permission check in the decision
	// log store. Defaults to false.
	EnableDecisionLog *bool `json:"enable_decision_log,omitempty"`

	// EnableVirtualOwner synthesizes an OWNER assignment for
	// SUPER_ADMIN principals that hold no explicit row in the tenant.
	// Defaults to true.
	EnableVirtualOwner *bool `json:"enable_virtual_owner,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PermissionTTL: 5 * time.Minute,
		PrincipalTTL:  time.Minute,
	}
}

func (c Config) decisionLogEnabled() bool {
	return c.EnableDecisionLog != nil && *c.EnableDecisionLog
}

func (c Config) virtualOwnerEnabled() bool {
	return c.EnableVirtualOwner == nil || *c.EnableVirtualOwner
}
