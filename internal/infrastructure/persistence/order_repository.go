package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/locoganga/storefront/internal/domain/order"
	"github.com/locoganga/storefront/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// activeStatuses are the non-terminal statuses that block a new checkout for
// the same cart session
var activeStatuses = []order.Status{
	order.StatusPending,
	order.StatusPaymentCreated,
	order.StatusPaymentConfirmed,
	order.StatusFulfillmentCreated,
}

// Create persists a new order with its lines. The active-order check and the
// insert run in one transaction serialized per cart session, so concurrent
// checkouts for the same session cannot both pass the guard.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite serializes writers on its own and has no advisory locks
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", o.CartSessionID).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&order.Order{}).
			Where("cart_session_id = ? AND status IN ?", o.CartSessionID, activeStatuses).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrCheckoutInProgress
		}

		if err := tx.Create(o).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		return nil
	})
}

// FindByOrderNumber returns an order with its lines
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("order_number = ?", orderNumber).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByPaymentRef returns the order attached to an external payment ref
func (r *GormOrderRepository) FindByPaymentRef(ctx context.Context, paymentRef string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("external_payment_ref = ?", paymentRef).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindBySession returns all orders for a cart session, newest first
func (r *GormOrderRepository) FindBySession(ctx context.Context, sessionID string) ([]order.Order, error) {
	var orders []order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("cart_session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ExistsOrderNumber reports whether an order number is already taken
func (r *GormOrderRepository) ExistsOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsActiveForSession reports whether the session has a non-terminal order
func (r *GormOrderRepository) ExistsActiveForSession(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("cart_session_id = ? AND status IN ?", sessionID, activeStatuses).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transition loads the order under a row lock, applies fn and saves the
// result in one transaction. Concurrent confirmation paths serialize on the
// lock; the loser reloads the updated row and fn sees the new state.
func (r *GormOrderRepository) Transition(ctx context.Context, orderNumber string, fn func(o *order.Order) error) (*order.Order, error) {
	var result *order.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Lines")
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var o order.Order
		if err := query.Where("order_number = ?", orderNumber).First(&o).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if err := fn(&o); err != nil {
			return err
		}

		o.IncrementVersion()
		if err := tx.Omit("Lines").Save(&o).Error; err != nil {
			return err
		}
		result = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update saves non-lifecycle field changes
func (r *GormOrderRepository) Update(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Omit("Lines").Save(o).Error
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
