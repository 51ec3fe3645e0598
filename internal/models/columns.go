package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMalformedColumn is returned when a JSON column cannot be decoded into
// its declared shape. A NULL column is not malformed.
var ErrMalformedColumn = errors.New("malformed json column")

func scanJSON(column string, src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: %s: unsupported source type %T", ErrMalformedColumn, column, src)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedColumn, column, err)
	}
	return nil
}

func valueJSON(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// StringList is a JSONB array of strings (image paths, sizes, features).
type StringList []string

func (l *StringList) Scan(src any) error {
	var out []string
	if err := scanJSON("string list", src, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON([]string(l))
}

// First returns the first entry or "" for an empty list.
func (l StringList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// DecimalList is a JSONB array of money amounts.
type DecimalList []decimal.Decimal

func (l *DecimalList) Scan(src any) error {
	var out []decimal.Decimal
	if err := scanJSON("decimal list", src, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

func (l DecimalList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON([]decimal.Decimal(l))
}
