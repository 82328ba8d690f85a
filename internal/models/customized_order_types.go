package models

import "time"

// CustomizationStatus is the workflow state of a customized order record.
type CustomizationStatus string

const (
	CustomizationPending      CustomizationStatus = "pending"
	CustomizationInReview     CustomizationStatus = "in_review"
	CustomizationQuoted       CustomizationStatus = "quoted"
	CustomizationInProduction CustomizationStatus = "in_production"
	CustomizationCompleted    CustomizationStatus = "completed"
	CustomizationCancelled    CustomizationStatus = "cancelled"
)

func (s CustomizationStatus) IsValid() bool {
	switch s {
	case CustomizationPending, CustomizationInReview, CustomizationQuoted,
		CustomizationInProduction, CustomizationCompleted, CustomizationCancelled:
		return true
	}
	return false
}

// CustomizedOrder is the model for the 'customized_orders' table.
// A record may exist before payment (cart-time capture) and is linked to an order later.
type CustomizedOrder struct {
	ID                   string              `json:"id" db:"id"`
	UserID               *string             `json:"user_id,omitempty" db:"user_id"`
	UserEmail            string              `json:"user_email" db:"user_email"`
	UserName             *string             `json:"user_name,omitempty" db:"user_name"`
	UserPhone            *string             `json:"user_phone,omitempty" db:"user_phone"`
	ProductID            *string             `json:"product_id,omitempty" db:"product_id"`
	ProductName          *string             `json:"product_name,omitempty" db:"product_name"`
	Price                *float64            `json:"price,omitempty" db:"price"`
	CustomizationDetails string              `json:"customization_details" db:"customization_details"`
	DriveLink            *string             `json:"drive_link,omitempty" db:"drive_link"`
	Quantity             int                 `json:"quantity" db:"quantity"`
	Status               CustomizationStatus `json:"status" db:"status"`
	OrderID              *string             `json:"order_id,omitempty" db:"order_id"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
	DeletedAt            *time.Time          `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CustomizedOrderInput is the cart-time capture payload.
type CustomizedOrderInput struct {
	UserEmail            string   `json:"user_email" binding:"required"`
	UserName             string   `json:"user_name"`
	UserPhone            string   `json:"user_phone"`
	ProductID            *string  `json:"product_id"`
	ProductName          string   `json:"product_name"`
	Price                *float64 `json:"price"`
	CustomizationDetails string   `json:"customization_details" binding:"required"`
	DriveLink            string   `json:"drive_link"`
	Quantity             int      `json:"quantity"`
}
