package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is a free-form JSONB document attached to records that carry
// provider- or model-specific details not worth first-class columns.
type Metadata map[string]any

// Value implements driver.Valuer for JSONB storage.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (m *Metadata) Scan(value any) error {
	return scanJSONB(value, m)
}

// Value implements driver.Valuer for JSONB storage.
func (s Suggestions) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (s *Suggestions) Scan(value any) error {
	return scanJSONB(value, s)
}

// Value implements driver.Valuer for JSONB storage.
func (b GoalBreakdown) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (b *GoalBreakdown) Scan(value any) error {
	return scanJSONB(value, b)
}

// scanJSONB decodes a JSONB column into dest. NULL leaves dest at its
// zero value.
func scanJSONB(value any, dest any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}
}
