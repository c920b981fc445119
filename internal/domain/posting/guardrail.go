package posting

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// balanceTolerance absorbs rounding noise from upstream tax/amount
// calculations. Any discrepancy at or above this value is a data bug in
// the producing event, never something to hide here.
var balanceTolerance = decimal.RequireFromString("0.01")

// ValidateDoubleEntry checks the fundamental double-entry law over a line
// set: |sum(dr) - sum(cr)| < 0.01. An empty line set balances trivially.
func ValidateDoubleEntry(lines []FinanceLine) error {
	dr, cr := decimal.Zero, decimal.Zero
	for _, l := range lines {
		dr = dr.Add(l.DR)
		cr = cr.Add(l.CR)
	}
	if diff := dr.Sub(cr).Abs(); diff.GreaterThanOrEqual(balanceTolerance) {
		return shared.NewDomainError("UNBALANCED_LINES",
			fmt.Sprintf("lines do not balance: debits %s, credits %s (difference %s)", dr, cr, diff))
	}
	return nil
}

// ValidateGLBalance is ValidateDoubleEntry over derived GL lines
func ValidateGLBalance(lines []GLLine) error {
	dr, cr := decimal.Zero, decimal.Zero
	for _, l := range lines {
		dr = dr.Add(l.DR)
		cr = cr.Add(l.CR)
	}
	if diff := dr.Sub(cr).Abs(); diff.GreaterThanOrEqual(balanceTolerance) {
		return shared.NewDomainError("UNBALANCED_LINES",
			fmt.Sprintf("derived lines do not balance: debits %s, credits %s (difference %s)", dr, cr, diff))
	}
	return nil
}

// RequireHeaderFields checks that each named header field is present and
// non-empty on the event. Field names follow the wire shape of the event
// (organization_id, smart_code, event_time, currency, source_system,
// origin_txn_id, ai_confidence) plus metadata.<key> lookups.
func RequireHeaderFields(event *UniversalFinanceEvent, fields []string) error {
	for _, f := range fields {
		if !headerFieldPresent(event, f) {
			return shared.NewDomainError("MISSING_FIELD",
				fmt.Sprintf("required header field %q is missing or empty", f))
		}
	}
	return nil
}

func headerFieldPresent(event *UniversalFinanceEvent, field string) bool {
	switch field {
	case "organization_id":
		return event.OrganizationID != uuid.Nil
	case "smart_code":
		return event.SmartCode != ""
	case "event_time":
		return !event.EventTime.IsZero()
	case "currency":
		return event.Currency != ""
	case "source_system":
		return event.SourceSystem != ""
	case "origin_txn_id":
		return event.OriginTxnID != ""
	case "ai_confidence":
		return true
	}
	if key, ok := strings.CutPrefix(field, "metadata."); ok {
		v, found := event.Metadata[key]
		return found && !valueEmpty(v)
	}
	return false
}

// RequireLineFields checks that each named field is present and non-empty
// on every line of the event
func RequireLineFields(lines []FinanceLine, fields []string) error {
	for i, line := range lines {
		for _, f := range fields {
			if !lineFieldPresent(line, f) {
				return shared.NewDomainError("MISSING_FIELD",
					fmt.Sprintf("required line field %q is missing or empty on line %d", f, i))
			}
		}
	}
	return nil
}

func lineFieldPresent(line FinanceLine, field string) bool {
	switch field {
	case "entity_id":
		return line.EntityID != ""
	case "role":
		return line.Role != ""
	case "amount":
		return line.DR.IsPositive() || line.CR.IsPositive()
	}
	if key, ok := strings.CutPrefix(field, "relationships."); ok {
		return line.Relationships[key] != ""
	}
	if key, ok := strings.CutPrefix(field, "metadata."); ok {
		v, found := line.Metadata[key]
		return found && !valueEmpty(v)
	}
	return false
}

func valueEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// IdempotencyKey derives the deterministic duplicate-detection key for an
// event: organization id, smart code and originating transaction id. Two
// submissions of the same originating transaction must always produce the
// same key.
func IdempotencyKey(event *UniversalFinanceEvent) string {
	return fmt.Sprintf("%s|%s|%s", event.OrganizationID, event.SmartCode, event.OriginTxnID)
}
