package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dinein-system/internal/database/models"
	"dinein-system/internal/promotion"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at, id")
	})
}

func (r *GormRepository) Create(ctx context.Context, order *models.Order, promotionID *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if promotionID != nil {
			if err := promotion.Redeem(tx, *promotionID); err != nil {
				return err
			}
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
}

func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withItems(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func (r *GormRepository) UpdatedSince(ctx context.Context, restaurantID uuid.UUID, since time.Time, limit int) ([]models.Order, error) {
	var list []models.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("restaurant_id = ? AND updated_at >= ?", restaurantID, since).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return list, nil
}

func (r *GormRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update order status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) CreatedBetween(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Select("id", "restaurant_id", "status", "subtotal", "discount_amount", "total", "created_at", "updated_at").
		Where("restaurant_id = ? AND created_at >= ? AND created_at < ?", restaurantID, from, to).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormRepository) LatestByPhone(ctx context.Context, restaurantID uuid.UUID, phone string) (*models.Order, error) {
	var order models.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("restaurant_id = ? AND customer_phone = ?", restaurantID, phone).
		Order("created_at DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}
