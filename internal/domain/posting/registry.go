package posting

import (
	"errors"
	"fmt"
)

// UnknownSmartCodeError signals an event whose smart code has no rule
// anywhere in the merged registry. Such events are rejected, not staged:
// with no recipe there is nothing a reviewer could approve.
type UnknownSmartCodeError struct {
	SmartCode SmartCode
}

// Error implements the error interface
func (e *UnknownSmartCodeError) Error() string {
	return fmt.Sprintf("unknown smart code %q: no posting rule configured", e.SmartCode)
}

// IsUnknownSmartCode reports whether err is an UnknownSmartCodeError
func IsUnknownSmartCode(err error) bool {
	var target *UnknownSmartCodeError
	return errors.As(err, &target)
}

// RuleRegistry is the merged, per-organization rule set. It is built once
// at engine initialization and read-only for the engine's lifetime; a
// configuration change requires re-initialization (see the processor
// registry's invalidation hook).
type RuleRegistry struct {
	rules map[SmartCode]PostingRule
}

// NewRuleRegistry merges rule layers in ascending priority order: later
// layers win. The conventional layering is universal defaults, then the
// organization's industry pack, then organization-specific overrides. A
// higher-priority rule completely replaces the lower-priority rule of the
// same smart code; fields are never deep-merged.
func NewRuleRegistry(layers ...[]PostingRule) (*RuleRegistry, error) {
	merged := make(map[SmartCode]PostingRule)
	for _, layer := range layers {
		for _, rule := range layer {
			if err := rule.Validate(); err != nil {
				return nil, err
			}
			merged[rule.SmartCode] = rule
		}
	}
	return &RuleRegistry{rules: merged}, nil
}

// Rule looks up the posting rule for a smart code
func (r *RuleRegistry) Rule(code SmartCode) (PostingRule, error) {
	rule, ok := r.rules[code]
	if !ok {
		return PostingRule{}, &UnknownSmartCodeError{SmartCode: code}
	}
	return rule, nil
}

// Has reports whether a rule exists for the smart code
func (r *RuleRegistry) Has(code SmartCode) bool {
	_, ok := r.rules[code]
	return ok
}

// Size returns the number of distinct smart codes in the merged registry
func (r *RuleRegistry) Size() int {
	return len(r.rules)
}

// SmartCodes returns every registered smart code
func (r *RuleRegistry) SmartCodes() []SmartCode {
	codes := make([]SmartCode, 0, len(r.rules))
	for code := range r.rules {
		codes = append(codes, code)
	}
	return codes
}
