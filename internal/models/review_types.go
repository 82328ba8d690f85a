package models

import "time"

const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Review is the model for the 'reviews' table.
type Review struct {
	ID        string    `json:"id" db:"id"`
	ProductID *string   `json:"product_id,omitempty" db:"product_id"`
	OrderID   *string   `json:"order_id,omitempty" db:"order_id"`
	UserEmail string    `json:"user_email" db:"user_email"`
	UserName  string    `json:"user_name" db:"user_name"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReviewInput is the public submission payload.
type ReviewInput struct {
	ProductID *string `json:"product_id"`
	OrderID   *string `json:"order_id"`
	UserEmail string  `json:"user_email" binding:"required"`
	UserName  string  `json:"user_name" binding:"required"`
	Rating    int     `json:"rating" binding:"required,min=1,max=5"`
	Comment   string  `json:"comment"`
}
