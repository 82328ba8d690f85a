package models

import (
	"encoding/json"
	"time"
)

// Outbox task kinds.
const (
	TaskMaterializeCustomization = "customization.materialize"
	TaskOrderConfirmationEmail   = "email.order_confirmation"
)

const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskDone       = "done"
	TaskFailed     = "failed"
)

// OutboxTask is the model for the 'outbox_tasks' table.
// AvailableAt and LockedUntil are unix milliseconds.
type OutboxTask struct {
	ID          string                `json:"id" db:"id"`
	Kind        string                `json:"kind" db:"kind"`
	Payload     JSON[json.RawMessage] `json:"payload" db:"payload"`
	Status      string                `json:"status" db:"status"`
	Attempts    int                   `json:"attempts" db:"attempts"`
	LastError   *string               `json:"last_error,omitempty" db:"last_error"`
	AvailableAt int64                 `json:"available_at" db:"available_at"`
	LockedUntil int64                 `json:"locked_until" db:"locked_until"`
	CreatedAt   time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at" db:"updated_at"`
}

// OrderTaskPayload is the payload of every order-scoped phase-2 task.
type OrderTaskPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}
