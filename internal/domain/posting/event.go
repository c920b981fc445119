package posting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FinanceLine is one side of the eventual journal entry, before or after
// account derivation. EntityID is either a concrete ledger-account
// reference ("COA:4100") or a role placeholder ("PAYMENT:card",
// "REVENUE:service") to be resolved by the rule's posting recipe.
type FinanceLine struct {
	EntityID      string            `json:"entity_id"`
	Role          string            `json:"role"`
	DR            decimal.Decimal   `json:"dr"`
	CR            decimal.Decimal   `json:"cr"`
	Relationships map[string]string `json:"relationships,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

// Amount returns the non-zero side of the line
func (l FinanceLine) Amount() decimal.Decimal {
	if l.DR.IsPositive() {
		return l.DR
	}
	return l.CR
}

// IsDebit returns true if the line carries a debit amount
func (l FinanceLine) IsDebit() bool {
	return l.DR.IsPositive()
}

// Validate checks the canonical form: amounts are non-negative and exactly
// one of the dr/cr pair is non-zero
func (l FinanceLine) Validate() error {
	if l.DR.IsNegative() || l.CR.IsNegative() {
		return shared.NewDomainError("INVALID_LINE", fmt.Sprintf("line %q carries a negative amount", l.Role))
	}
	if l.DR.IsPositive() == l.CR.IsPositive() {
		return shared.NewDomainError("INVALID_LINE",
			fmt.Sprintf("line %q must carry exactly one of dr/cr (dr=%s cr=%s)", l.Role, l.DR, l.CR))
	}
	return nil
}

// UniversalFinanceEvent is the normalized input to the posting engine.
// Every vertical app funnels its business events into this shape.
type UniversalFinanceEvent struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	SmartCode      SmartCode      `json:"smart_code"`
	EventTime      time.Time      `json:"event_time"`
	Currency       string         `json:"currency"`
	SourceSystem   string         `json:"source_system"`
	OriginTxnID    string         `json:"origin_txn_id"`
	AIConfidence   float64        `json:"ai_confidence"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Lines          []FinanceLine  `json:"lines"`
}

// Validate checks the structural shape of the event. Lines may be empty
// for commitment-only events, which carry no GL impact; when lines are
// present each must be in canonical dr/cr form.
func (e *UniversalFinanceEvent) Validate() error {
	if e.OrganizationID == uuid.Nil {
		return shared.NewDomainError("INVALID_EVENT", "organization_id is required")
	}
	if err := e.SmartCode.Validate(); err != nil {
		return err
	}
	if e.EventTime.IsZero() {
		return shared.NewDomainError("INVALID_EVENT", "event_time is required")
	}
	if e.Currency == "" {
		return shared.NewDomainError("INVALID_EVENT", "currency is required")
	}
	if e.OriginTxnID == "" {
		return shared.NewDomainError("INVALID_EVENT", "origin_txn_id is required")
	}
	if e.AIConfidence < 0 || e.AIConfidence > 1 {
		return shared.NewDomainError("INVALID_EVENT",
			fmt.Sprintf("ai_confidence %v is outside [0,1]", e.AIConfidence))
	}
	for _, line := range e.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TotalDebits sums the debit side across all lines
func (e *UniversalFinanceEvent) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.DR)
	}
	return total
}

// TotalCredits sums the credit side across all lines
func (e *UniversalFinanceEvent) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.CR)
	}
	return total
}

// LineByRole returns the first line with the given posting role
// (case-insensitive), or nil when no line carries it
func (e *UniversalFinanceEvent) LineByRole(role string) *FinanceLine {
	for i := range e.Lines {
		if strings.EqualFold(e.Lines[i].Role, role) {
			return &e.Lines[i]
		}
	}
	return nil
}

// Field resolves a named event field for outcome-expression evaluation.
// Supported names: ai_confidence, total_amount, line_count, and
// metadata.<key> for scalar metadata values.
func (e *UniversalFinanceEvent) Field(name string) (any, bool) {
	switch name {
	case "ai_confidence":
		return e.AIConfidence, true
	case "total_amount":
		v, _ := e.TotalDebits().Float64()
		return v, true
	case "line_count":
		return float64(len(e.Lines)), true
	case "currency":
		return e.Currency, true
	case "source_system":
		return e.SourceSystem, true
	}
	if key, ok := strings.CutPrefix(name, "metadata."); ok {
		v, found := e.Metadata[key]
		if !found {
			return nil, false
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case int64:
			return float64(t), true
		case string:
			return t, true
		case bool:
			return t, true
		}
		return nil, false
	}
	return nil, false
}
