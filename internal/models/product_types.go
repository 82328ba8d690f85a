package models

import (
	"math"
	"time"
)

// Product is the model for the 'products' table.
type Product struct {
	ID              string         `json:"id" db:"id"`
	Name            string         `json:"name" db:"name"`
	Slug            string         `json:"slug" db:"slug"`
	Description     string         `json:"description" db:"description"`
	Price           float64        `json:"price" db:"price"`
	DiscountPercent float64        `json:"discount_percent" db:"discount_percent"`
	Stock           int            `json:"stock" db:"stock"`
	Images          JSON[[]string] `json:"images" db:"images"`
	IsCustomizable  bool           `json:"is_customizable" db:"is_customizable"`
	IsActive        bool           `json:"is_active" db:"is_active"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// SalePrice applies the discount and rounds to whole currency units.
func (p *Product) SalePrice() float64 {
	if p.DiscountPercent <= 0 {
		return p.Price
	}
	return math.Round(p.Price * (100 - p.DiscountPercent) / 100)
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	Price           *float64 `json:"price" binding:"required,gte=0"`
	DiscountPercent float64  `json:"discount_percent" binding:"gte=0,lte=100"`
	Stock           int      `json:"stock" binding:"gte=0"`
	Images          []string `json:"images"`
	IsCustomizable  bool     `json:"is_customizable"`
	IsActive        *bool    `json:"is_active"`
}
