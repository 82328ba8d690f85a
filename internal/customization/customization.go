// Package customization manages customized-order records: cart-time capture before payment
// and linking those records to the order once it exists.
package customization

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/repository"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

const defaultDetails = "Customization requested at checkout"

type Service struct {
	db    *database.DB
	repos *repository.Repositories
	log   *zap.Logger
}

func NewService(repos *repository.Repositories, log *zap.Logger) *Service {
	return &Service{db: repos.DB, repos: repos, log: log}
}

// Capture stores a customization submitted from the cart, before any order exists.
func (s *Service) Capture(ctx context.Context, in models.CustomizedOrderInput) (*models.CustomizedOrder, error) {
	email := sanitize.Email(in.UserEmail)
	if !validation.ValidEmail(email) {
		return nil, apperrors.Validation("invalid customization request", "user_email must be a valid email address")
	}
	details := sanitize.String(in.CustomizationDetails, sanitize.DefaultMaxLength)
	if strings.TrimSpace(details) == "" {
		return nil, apperrors.Validation("invalid customization request", "customization_details is required")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, apperrors.Validation("invalid customization request", "price must not be negative")
	}

	c := &models.CustomizedOrder{
		UserEmail:            email,
		UserName:             optional(sanitize.String(in.UserName, 200)),
		UserPhone:            optional(sanitize.Phone(in.UserPhone)),
		ProductID:            in.ProductID,
		ProductName:          optional(sanitize.String(in.ProductName, 200)),
		Price:                in.Price,
		CustomizationDetails: details,
		DriveLink:            optional(sanitize.URL(in.DriveLink)),
		Quantity:             in.Quantity,
	}
	if c.ProductID != nil && !validation.ValidUUID(*c.ProductID) {
		c.ProductID = nil
	}
	if err := s.repos.CustomizedOrders.Create(ctx, nil, c); err != nil {
		return nil, err
	}
	s.log.Info("customization captured", zap.String("id", c.ID), zap.String("user_email", c.UserEmail))
	return c, nil
}

// HandleTask is the outbox handler for customization.materialize.
func (s *Service) HandleTask(ctx context.Context, task models.OutboxTask) error {
	var p models.OrderTaskPayload
	if err := json.Unmarshal(task.Payload.V, &p); err != nil {
		return fmt.Errorf("decode customization payload: %w", err)
	}
	_, err := s.Materialize(ctx, p.OrderID)
	return err
}

// Materialize ensures every line of the order that needs manual work has a customized-order
// record linked to it. A cart-time capture for the same purchaser and product is reused;
// otherwise a record is created from the line. It returns the number of records linked or
// created, and is a no-op for an order that already has linked records.
func (s *Service) Materialize(ctx context.Context, orderID string) (int, error) {
	o, err := s.repos.Orders.GetByID(ctx, nil, orderID)
	if err != nil {
		return 0, err
	}

	linked := 0
	err = s.db.InTx(ctx, "materialize customizations", func(tx database.Querier) error {
		n, err := s.repos.CustomizedOrders.CountForOrder(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		for _, item := range o.Items.V {
			if !item.NeedsCustomization() {
				continue
			}
			rec := recordFor(o, item)

			existing, err := s.repos.CustomizedOrders.FindUnlinked(ctx, tx, o.UserEmail, item.ProductID, &item.ProductName)
			if err != nil {
				return err
			}
			if existing != nil {
				rec.ID = existing.ID
				if item.Customization == nil || strings.TrimSpace(item.Customization.Details) == "" {
					rec.CustomizationDetails = existing.CustomizationDetails
				}
				if rec.DriveLink == nil {
					rec.DriveLink = existing.DriveLink
				}
				if err := s.repos.CustomizedOrders.LinkToOrder(ctx, tx, rec); err != nil {
					return err
				}
			} else if err := s.repos.CustomizedOrders.Create(ctx, tx, rec); err != nil {
				return err
			}
			linked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if linked > 0 {
		s.log.Info("customizations linked to order",
			zap.String("order_id", o.ID),
			zap.String("order_number", o.OrderNumber),
			zap.Int("count", linked),
		)
	}
	return linked, nil
}

func recordFor(o *models.Order, item models.OrderItem) *models.CustomizedOrder {
	details := defaultDetails
	var link *string
	if item.Customization != nil {
		if d := strings.TrimSpace(item.Customization.Details); d != "" {
			details = d
		}
		link = optional(sanitize.URL(item.Customization.DriveLink))
	}
	name := item.ProductName
	orderID := o.ID
	return &models.CustomizedOrder{
		UserID:               o.UserID,
		UserEmail:            o.UserEmail,
		UserName:             o.UserName,
		UserPhone:            o.UserPhone,
		ProductID:            item.ProductID,
		ProductName:          &name,
		Price:                item.Price,
		CustomizationDetails: details,
		DriveLink:            link,
		Quantity:             item.Quantity,
		OrderID:              &orderID,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
