package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/locoganga/storefront/internal/domain/order"
)

// GormCartRepository implements order.CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindBySession returns all lines in a session cart
func (r *GormCartRepository) FindBySession(ctx context.Context, sessionID string) ([]order.CartLine, error) {
	var lines []order.CartLine
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Save upserts a cart line keyed by session and SKU
func (r *GormCartRepository) Save(ctx context.Context, line *order.CartLine) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity", "price_at_add", "title_at_add", "updated_at",
			}),
		}).
		Create(line).Error
}

// DeleteLine removes one SKU from a session cart
func (r *GormCartRepository) DeleteLine(ctx context.Context, sessionID, sku string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ? AND sku = ?", sessionID, sku).
		Delete(&order.CartLine{}).Error
}

// ClearSession removes every line from a session cart
func (r *GormCartRepository) ClearSession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&order.CartLine{}).Error
}

// Ensure GormCartRepository implements order.CartRepository
var _ order.CartRepository = (*GormCartRepository)(nil)
