package posting

import (
	"fmt"
	"strings"

	"github.com/hera/finance/internal/domain/shared"
)

// FiscalCheck names the fiscal-period policy a rule requires before any
// derivation is attempted
type FiscalCheck string

const (
	FiscalCheckOpenPeriod  FiscalCheck = "open_period"  // event date must fall in an open period
	FiscalCheckAllowFuture FiscalCheck = "allow_future" // dates beyond the last maintained period are accepted
	FiscalCheckBlockPast   FiscalCheck = "block_past"   // dates before the earliest open period are rejected
)

// IsValid checks if the fiscal check policy is known
func (f FiscalCheck) IsValid() bool {
	switch f {
	case FiscalCheckOpenPeriod, FiscalCheckAllowFuture, FiscalCheckBlockPast:
		return true
	}
	return false
}

// RecipeSide is the journal side a derivation instruction produces
type RecipeSide string

const (
	SideDR RecipeSide = "DR"
	SideCR RecipeSide = "CR"
)

// RecipeLine is one derivation instruction within a posting recipe:
// "derive a <DR|CR> line for role <Role>, resolving its account from the
// dotted path <From>". Conditions, when present, gate whether the
// instruction applies to a given event.
type RecipeLine struct {
	Derive     string         `json:"derive"`
	From       DottedPath     `json:"from"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// Side returns the DR/CR prefix of the derive instruction
func (r RecipeLine) Side() RecipeSide {
	side, _, _ := strings.Cut(strings.TrimSpace(r.Derive), " ")
	return RecipeSide(strings.ToUpper(side))
}

// Role returns the posting role the instruction derives
func (r RecipeLine) Role() string {
	_, role, _ := strings.Cut(strings.TrimSpace(r.Derive), " ")
	return strings.TrimSpace(role)
}

// Validate checks the instruction's shape
func (r RecipeLine) Validate() error {
	if r.Side() != SideDR && r.Side() != SideCR {
		return shared.NewDomainError("INVALID_RULE",
			fmt.Sprintf("derive instruction %q must start with DR or CR", r.Derive))
	}
	if r.Role() == "" {
		return shared.NewDomainError("INVALID_RULE",
			fmt.Sprintf("derive instruction %q names no posting role", r.Derive))
	}
	if r.From == "" {
		return shared.NewDomainError("INVALID_RULE",
			fmt.Sprintf("derive instruction %q has no source path", r.Derive))
	}
	return nil
}

// Matches evaluates the instruction's conditions against the event.
// Conditions are exact-match predicates over event fields (see
// UniversalFinanceEvent.Field); an instruction with no conditions always
// applies.
func (r RecipeLine) Matches(event *UniversalFinanceEvent) bool {
	for field, want := range r.Conditions {
		got, ok := event.Field(field)
		if !ok {
			return false
		}
		if !conditionEqual(got, want) {
			return false
		}
	}
	return true
}

func conditionEqual(got, want any) bool {
	if gf, ok := toFloat(got); ok {
		if wf, ok := toFloat(want); ok {
			return gf == wf
		}
		return false
	}
	return got == want
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// Validations holds the checks a rule requires before derivation
type Validations struct {
	RequiredHeader []string    `json:"required_header,omitempty"`
	RequiredLines  []string    `json:"required_lines,omitempty"`
	FiscalCheck    FiscalCheck `json:"fiscal_check,omitempty"`
}

// PostingRecipe is the ordered list of derivation instructions that turns
// an event into concrete GL lines
type PostingRecipe struct {
	Lines []RecipeLine `json:"lines"`
}

// Outcomes holds the rule's policy decision procedure. AutoPostIf is a
// boolean expression over event fields (see expr.go for the grammar); when
// it evaluates true the derived journal commits automatically, otherwise
// the journal is staged for human review. An empty expression always
// stages.
type Outcomes struct {
	AutoPostIf string `json:"auto_post_if,omitempty"`
}

// PostingRule is an immutable, versioned-by-smart-code policy record
// mapping a business event classification to validation requirements, a
// posting recipe, and an outcome policy
type PostingRule struct {
	SmartCode     SmartCode     `json:"smart_code"`
	Validations   Validations   `json:"validations"`
	PostingRecipe PostingRecipe `json:"posting_recipe"`
	Outcomes      Outcomes      `json:"outcomes"`
}

// Validate checks the rule's internal consistency. Rules are validated at
// registry build time so a malformed rule fails initialization rather
// than event processing.
func (r PostingRule) Validate() error {
	if err := r.SmartCode.Validate(); err != nil {
		return err
	}
	if r.Validations.FiscalCheck != "" && !r.Validations.FiscalCheck.IsValid() {
		return shared.NewDomainError("INVALID_RULE",
			fmt.Sprintf("rule %s: unknown fiscal check %q", r.SmartCode, r.Validations.FiscalCheck))
	}
	if len(r.PostingRecipe.Lines) == 0 {
		return shared.NewDomainError("INVALID_RULE",
			fmt.Sprintf("rule %s: posting recipe has no lines", r.SmartCode))
	}
	for _, line := range r.PostingRecipe.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	if r.Outcomes.AutoPostIf != "" {
		if _, err := ParseExpr(r.Outcomes.AutoPostIf); err != nil {
			return shared.NewDomainError("INVALID_RULE",
				fmt.Sprintf("rule %s: invalid auto_post_if expression: %v", r.SmartCode, err))
		}
	}
	return nil
}
