// Package entity provides the base types for tenant records.
package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Values is a record's field value bag, stored as JSONB. Field api names are
// the keys; there is no fixed column set because tenants define their own
// fields. Implements sql.Scanner and driver.Valuer.
//
// Decoding uses json.Number so currency amounts survive the round trip
// without float64 precision loss.
type Values map[string]any

// Scan implements sql.Scanner for reading JSONB.
func (v *Values) Scan(src any) error {
	if src == nil {
		*v = nil
		return nil
	}

	var source []byte
	switch s := src.(type) {
	case []byte:
		source = s
	case string:
		source = []byte(s)
	default:
		return fmt.Errorf("unsupported type for Values: %T", src)
	}

	if len(source) == 0 {
		*v = nil
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(source))
	decoder.UseNumber()

	var result map[string]any
	if err := decoder.Decode(&result); err != nil {
		return fmt.Errorf("failed to decode Values: %w", err)
	}

	*v = result
	return nil
}

// Value implements driver.Valuer for writing JSONB.
func (v Values) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// GetString returns the string value or "" when absent or of another type.
func (v Values) GetString(key string) string {
	if v == nil {
		return ""
	}
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

// GetInt returns the int64 value, handling json.Number.
func (v Values) GetInt(key string) int64 {
	if v == nil {
		return 0
	}
	switch n := v[key].(type) {
	case json.Number:
		i, _ := n.Int64()
		return i
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// GetFloat returns the float64 value, handling json.Number.
func (v Values) GetFloat(key string) float64 {
	if v == nil {
		return 0
	}
	switch n := v[key].(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// GetDecimal returns the value with full precision. Preferred for currency
// fields.
func (v Values) GetDecimal(key string) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	switch n := v[key].(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(n)
	}
	return decimal.Zero
}

// GetBool returns the boolean value.
func (v Values) GetBool(key string) bool {
	if v == nil {
		return false
	}
	if b, ok := v[key].(bool); ok {
		return b
	}
	return false
}

// GetMap returns a nested object value.
func (v Values) GetMap(key string) Values {
	if v == nil {
		return nil
	}
	if m, ok := v[key].(map[string]any); ok {
		return Values(m)
	}
	return nil
}

// Has reports whether the key is present, nil values included.
func (v Values) Has(key string) bool {
	if v == nil {
		return false
	}
	_, ok := v[key]
	return ok
}

// Set adds or updates a value.
func (v *Values) Set(key string, value any) Values {
	if *v == nil {
		*v = make(Values)
	}
	(*v)[key] = value
	return *v
}

// Clone creates a shallow copy.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
