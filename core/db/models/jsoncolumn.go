package models

import (
	"database/sql/driver"
	"strings"

	"github.com/goccy/go-json"

	"github.com/upcrm/forms-transport/core/logger"
)

// Array-valued columns have historically been written inconsistently:
// sometimes as a JSON-encoded array, sometimes as a bare string, sometimes
// as the literal text "null". The decoders below absorb every shape and
// degrade to an empty collection instead of failing; nothing outside this
// file may assume a stored shape.

var columnLog = logger.NewNil()

// SetLogger sets the logger used for malformed column diagnostics.
func SetLogger(l logger.Logger) {
	if l != nil {
		columnLog = l
	}
}

// decodeArrayColumn decodes raw column data into dst (a pointer to a slice).
// It never fails: empty input, the literal "null" and undecodable text all
// leave dst empty.
func decodeArrayColumn(raw []byte, dst interface{}) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		columnLog.Warn("malformed array column, falling back to empty",
			logger.Err(err), logger.Body(trimmed))
	}
}

// StringArray is a tags-like column which always scans to an array.
type StringArray []string

// Scan implements sql.Scanner. It never returns an error; unreadable
// values degrade to an empty array.
func (a *StringArray) Scan(value interface{}) error {
	*a = ToStringArray(value)
	return nil
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		a = StringArray{}
	}
	data, err := json.Marshal(a)
	return string(data), err
}

// ToStringArray coerces a value of unknown runtime shape into a string
// array. Payload tag values run through here as well, since third parties
// submit them as native arrays, JSON text or garbage.
func ToStringArray(value interface{}) StringArray {
	switch v := value.(type) {
	case nil:
		return StringArray{}
	case StringArray:
		if v == nil {
			return StringArray{}
		}
		return v
	case []string:
		return append(StringArray{}, v...)
	case []interface{}:
		return interfacesToStrings(v)
	case []byte:
		return bytesToStringArray(v)
	case string:
		return bytesToStringArray([]byte(v))
	default:
		columnLog.Warn("unexpected array column type, falling back to empty",
			logger.Body(strings.TrimSpace(stringify(value))))
		return StringArray{}
	}
}

func bytesToStringArray(raw []byte) StringArray {
	var decoded []interface{}
	decodeArrayColumn(raw, &decoded)
	return interfacesToStrings(decoded)
}

func interfacesToStrings(values []interface{}) StringArray {
	result := StringArray{}
	for _, item := range values {
		if s := strings.TrimSpace(stringify(item)); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.Trim(string(data), `"`)
	}
}

// MappingRulesColumn is the stored field-mapping table of a connector.
type MappingRulesColumn []MappingRule

// Scan implements sql.Scanner. Corrupted mapping tables degrade to an
// empty rule set.
func (m *MappingRulesColumn) Scan(value interface{}) error {
	*m = MappingRulesColumn{}
	switch v := value.(type) {
	case nil:
	case []byte:
		decodeArrayColumn(v, m)
	case string:
		decodeArrayColumn([]byte(v), m)
	}
	if *m == nil {
		*m = MappingRulesColumn{}
	}
	return nil
}

// Value implements driver.Valuer.
func (m MappingRulesColumn) Value() (driver.Value, error) {
	if m == nil {
		m = MappingRulesColumn{}
	}
	data, err := json.Marshal(m)
	return string(data), err
}

// Pages is the stored page descriptor list of a Facebook connection.
type Pages []Page

// Scan implements sql.Scanner.
func (p *Pages) Scan(value interface{}) error {
	*p = Pages{}
	switch v := value.(type) {
	case nil:
	case []byte:
		decodeArrayColumn(v, p)
	case string:
		decodeArrayColumn([]byte(v), p)
	}
	if *p == nil {
		*p = Pages{}
	}
	return nil
}

// Value implements driver.Valuer.
func (p Pages) Value() (driver.Value, error) {
	if p == nil {
		p = Pages{}
	}
	data, err := json.Marshal(p)
	return string(data), err
}

// RawFields stores a provider field-data payload verbatim.
type RawFields json.RawMessage

// Scan implements sql.Scanner.
func (r *RawFields) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawFields{}, v...)
	case string:
		*r = RawFields(v)
	}
	return nil
}

// Value implements driver.Valuer.
func (r RawFields) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	return string(r), nil
}

// MarshalJSON returns r verbatim.
func (r RawFields) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("[]"), nil
	}
	return r, nil
}

// UnmarshalJSON stores data verbatim.
func (r *RawFields) UnmarshalJSON(data []byte) error {
	*r = append(RawFields{}, data...)
	return nil
}
