package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/hera/finance/internal/domain/posting"
)

// JSONMap stores an arbitrary string-keyed map as a JSONB column
type JSONMap map[string]any

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value any) error {
	return scanJSON(value, m)
}

// GLLinesJSON stores derived GL lines as a JSONB column
type GLLinesJSON []posting.GLLine

// Value implements driver.Valuer
func (l GLLinesJSON) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *GLLinesJSON) Scan(value any) error {
	return scanJSON(value, l)
}

// EventJSON stores a full finance event as a JSONB column, so the review
// queue keeps exactly what the producer submitted
type EventJSON posting.UniversalFinanceEvent

// Value implements driver.Valuer
func (e EventJSON) Value() (driver.Value, error) {
	return json.Marshal(posting.UniversalFinanceEvent(e))
}

// Scan implements sql.Scanner
func (e *EventJSON) Scan(value any) error {
	return scanJSON(value, e)
}

// RuleJSON stores a posting rule document as a JSONB column
type RuleJSON posting.PostingRule

// Value implements driver.Valuer
func (r RuleJSON) Value() (driver.Value, error) {
	return json.Marshal(posting.PostingRule(r))
}

// Scan implements sql.Scanner
func (r *RuleJSON) Scan(value any) error {
	return scanJSON(value, r)
}

// StringListJSON stores a string slice as a JSONB column
type StringListJSON []string

// Value implements driver.Valuer
func (s StringListJSON) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *StringListJSON) Scan(value any) error {
	return scanJSON(value, s)
}

// BoolMapJSON stores a string-to-bool map as a JSONB column
type BoolMapJSON map[string]bool

// Value implements driver.Valuer
func (m BoolMapJSON) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *BoolMapJSON) Scan(value any) error {
	return scanJSON(value, m)
}

// scanJSON handles both []byte (postgres) and string (sqlite) column values
func scanJSON(value any, dest any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
