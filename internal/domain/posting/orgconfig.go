package posting

import (
	"github.com/google/uuid"
)

// DeactivationBehaviour is the per-module policy applied when a module is
// disabled but still emits events. Transactions must not be lost when a
// feature is turned off mid-period, so the choice is explicit.
type DeactivationBehaviour string

const (
	// SuppressEvents rejects events from the module outright. This is a
	// deliberate, expected outcome, not an error the caller should retry.
	SuppressEvents DeactivationBehaviour = "suppress_events"
	// PostToSuspense keeps processing but routes every derived line to
	// the organization's suspense account.
	PostToSuspense DeactivationBehaviour = "post_to_suspense"
)

// IsValid checks if the behaviour is known
func (b DeactivationBehaviour) IsValid() bool {
	return b == SuppressEvents || b == PostToSuspense
}

// FinancePolicy carries the organization-level defaults consulted when a
// rule's path does not fully specify an account
type FinancePolicy struct {
	DefaultCOAID    string    `json:"default_coa_id"`
	TaxProfileID    string    `json:"tax_profile_id,omitempty"`
	FXSource        string    `json:"fx_source,omitempty"`
	SuspenseAccount AccountID `json:"suspense_account,omitempty"`
}

// OrgFinanceConfig is the per-tenant finance configuration: the module
// activation matrix, policy defaults, and deactivation behaviour. Loaded
// once at engine initialization and read-only thereafter.
type OrgFinanceConfig struct {
	OrganizationID        uuid.UUID                        `json:"organization_id"`
	Industry              string                           `json:"industry,omitempty"`
	ModulesEnabled        map[string]bool                  `json:"modules_enabled"`
	FinancePolicy         FinancePolicy                    `json:"finance_policy"`
	DeactivationBehaviour map[string]DeactivationBehaviour `json:"deactivation_behaviour,omitempty"`
}

// ModuleConfigured reports whether the module appears in the activation
// matrix at all. Events from unconfigured modules are a configuration
// error, distinct from a deliberately disabled module.
func (c *OrgFinanceConfig) ModuleConfigured(module string) bool {
	_, ok := c.ModulesEnabled[module]
	return ok
}

// ModuleEnabled reports whether the module is financially integrated
func (c *OrgFinanceConfig) ModuleEnabled(module string) bool {
	return c.ModulesEnabled[module]
}

// BehaviourFor returns the deactivation behaviour for a disabled module.
// Suppression is the default: losing an event to a rejected outcome the
// caller sees beats silently posting to an account nobody configured.
func (c *OrgFinanceConfig) BehaviourFor(module string) DeactivationBehaviour {
	if b, ok := c.DeactivationBehaviour[module]; ok && b.IsValid() {
		return b
	}
	return SuppressEvents
}

// PolicyDefaults returns the dotted paths and values the engine injects
// into the derivation context before resolution, layering policy defaults
// under looked-up master data
func (c *OrgFinanceConfig) PolicyDefaults() map[DottedPath]any {
	defaults := make(map[DottedPath]any)
	if c.FinancePolicy.DefaultCOAID != "" {
		defaults["finance.policy.default_coa"] = c.FinancePolicy.DefaultCOAID
	}
	if c.FinancePolicy.TaxProfileID != "" {
		defaults["finance.policy.tax_profile"] = c.FinancePolicy.TaxProfileID
	}
	if c.FinancePolicy.FXSource != "" {
		defaults["finance.policy.fx_source"] = c.FinancePolicy.FXSource
	}
	if c.FinancePolicy.SuspenseAccount != "" {
		defaults["finance.policy.suspense_account"] = string(c.FinancePolicy.SuspenseAccount)
	}
	return defaults
}
