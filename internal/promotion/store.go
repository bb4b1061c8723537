package promotion

import (
	"context"
	"errors"
	"fmt"

	"dinein-system/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDuplicateCode = errors.New("promotion code already exists")

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND UPPER(code) = ?", restaurantID, NormalizeCode(code)).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (s *GormStore) Create(ctx context.Context, promo *models.Promotion) error {
	promo.Code = NormalizeCode(promo.Code)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("restaurant_id = ? AND UPPER(code) = ?", promo.RestaurantID, promo.Code).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateCode
	}

	return s.db.WithContext(ctx).Create(promo).Error
}

func (s *GormStore) List(ctx context.Context, restaurantID uuid.UUID) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Find(&promos).Error
	return promos, err
}

// Redeem counts one use of a promotion inside the caller's transaction. The
// conditional update keeps concurrent checkouts from overshooting max_uses.
func Redeem(tx *gorm.DB, promotionID uuid.UUID) error {
	res := tx.Model(&models.Promotion{}).
		Where("id = ? AND is_active AND (max_uses IS NULL OR current_uses < max_uses)", promotionID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to redeem promotion: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &Rejection{
			Code:    promotionID.String(),
			Reason:  ReasonLimitReached,
			Message: "Promotion has reached its usage limit",
		}
	}
	return nil
}
