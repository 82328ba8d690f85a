package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON stores V as a JSON text column. It is transparent in API responses.
type JSON[T any] struct {
	V T
}

// Value implements driver.Valuer.
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (j *JSON[T]) Scan(src any) error {
	var zero T
	switch v := src.(type) {
	case nil:
		j.V = zero
		return nil
	case []byte:
		if len(v) == 0 {
			j.V = zero
			return nil
		}
		return json.Unmarshal(v, &j.V)
	case string:
		if v == "" {
			j.V = zero
			return nil
		}
		return json.Unmarshal([]byte(v), &j.V)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}

func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.V)
}

func (j *JSON[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &j.V)
}
