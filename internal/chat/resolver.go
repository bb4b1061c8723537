package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dinein-system/internal/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownSender     = errors.New("sender has no registered contact")
	ErrUnknownRestaurant = errors.New("restaurant not found")
)

// Resolver rebuilds a session from the sender's registered contact.
type Resolver interface {
	Resolve(ctx context.Context, senderID string) (Session, error)
	// Register links sender to the restaurant with the given slug.
	Register(ctx context.Context, senderID, restaurantSlug, locale string) (Session, error)
	SetPhone(ctx context.Context, senderID, phone string) error
}

type GormResolver struct {
	db *gorm.DB
}

func NewGormResolver(db *gorm.DB) *GormResolver {
	return &GormResolver{db: db}
}

func (r *GormResolver) Resolve(ctx context.Context, senderID string) (Session, error) {
	var contact models.ChatContact
	err := r.db.WithContext(ctx).Where("sender_id = ?", senderID).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrUnknownSender
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load chat contact: %w", err)
	}
	return Session{RestaurantID: contact.RestaurantID, Locale: contact.Locale, Phone: contact.Phone}, nil
}

func (r *GormResolver) Register(ctx context.Context, senderID, restaurantSlug, locale string) (Session, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(restaurantSlug)), true).
		First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrUnknownRestaurant
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load restaurant: %w", err)
	}

	if locale == "" {
		locale = "en"
	}
	contact := models.ChatContact{
		Base:         models.Base{ID: uuid.New()},
		RestaurantID: restaurant.ID,
		SenderID:     senderID,
		Locale:       locale,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sender_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"restaurant_id", "locale", "updated_at"}),
	}).Create(&contact).Error
	if err != nil {
		return Session{}, fmt.Errorf("failed to save chat contact: %w", err)
	}

	var stored models.ChatContact
	if err := r.db.WithContext(ctx).Where("sender_id = ?", senderID).First(&stored).Error; err != nil {
		return Session{}, fmt.Errorf("failed to reload chat contact: %w", err)
	}
	return Session{RestaurantID: stored.RestaurantID, Locale: stored.Locale, Phone: stored.Phone}, nil
}

func (r *GormResolver) SetPhone(ctx context.Context, senderID, phone string) error {
	res := r.db.WithContext(ctx).Model(&models.ChatContact{}).
		Where("sender_id = ?", senderID).
		Update("phone", strings.TrimSpace(phone))
	if res.Error != nil {
		return fmt.Errorf("failed to update phone: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnknownSender
	}
	return nil
}
