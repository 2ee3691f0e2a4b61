package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a string-to-string map stored as a JSON column. Teams use it
// for their question templates and entries for question/answer snapshots.
type JSONMap map[string]string

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}

	return json.Unmarshal(data, m)
}

// GormDataType tells gorm to use a jsonb column on postgres.
func (JSONMap) GormDataType() string {
	return "jsonb"
}
