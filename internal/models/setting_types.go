package models

import (
	"encoding/json"
	"time"
)

// Setting is one row of 'settings' or 'home_content': a key mapped to an arbitrary JSON document.
type Setting struct {
	Key       string                `json:"key" db:"key_name"`
	Value     JSON[json.RawMessage] `json:"value" db:"value"`
	UpdatedAt time.Time             `json:"updated_at" db:"updated_at"`
}
