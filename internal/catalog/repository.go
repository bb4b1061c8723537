package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dinein-system/internal/database/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MENU_CACHE_PREFIX = "menu:"
	MENU_CACHE_TTL    = 30 * time.Minute
)

var ErrNotFound = errors.New("catalog record not found")

// Menu is the customer-facing catalog of one restaurant: active categories in
// display order plus available products without a category.
type Menu struct {
	Restaurant    models.Restaurant `json:"restaurant"`
	Categories    []models.Category `json:"categories"`
	Uncategorized []models.Product  `json:"uncategorized,omitempty"`
}

type Repository struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.SugaredLogger
}

// NewRepository reads through redis when redisClient is non-nil.
func NewRepository(db *gorm.DB, redisClient *redis.Client, log *zap.SugaredLogger) *Repository {
	return &Repository{db: db, redis: redisClient, log: log}
}

func (r *Repository) Restaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant: %w", err)
	}
	return &restaurant, nil
}

// Products loads the given products of one restaurant with everything needed
// to price a selection. Ids belonging to another restaurant are simply absent
// from the result.
func (r *Repository) Products(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Extras").
		Preload("ModifierGroups").
		Preload("ModifierGroups.Options").
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repository) Menu(ctx context.Context, restaurantID uuid.UUID) (*Menu, error) {
	cacheKey := MENU_CACHE_PREFIX + restaurantID.String()

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached Menu
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			r.log.Warnw("Menu cache read failed, falling back to DB", "restaurant_id", restaurantID, "error", err)
		}
	}

	menu, err := r.loadMenu(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(menu); err == nil {
			if err := r.redis.Set(ctx, cacheKey, data, MENU_CACHE_TTL).Err(); err != nil {
				r.log.Warnw("Failed to cache menu", "key", cacheKey, "error", err)
			}
		}
	}
	return menu, nil
}

func (r *Repository) loadMenu(ctx context.Context, restaurantID uuid.UUID) (*Menu, error) {
	restaurant, err := r.Restaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	available := func(db *gorm.DB) *gorm.DB {
		return db.Where("is_available = ?", true).Order("name")
	}

	var categories []models.Category
	err = r.db.WithContext(ctx).
		Preload("Products", available).
		Preload("Products.Variants").
		Preload("Products.Extras").
		Preload("Products.ModifierGroups").
		Preload("Products.ModifierGroups.Options").
		Where("restaurant_id = ?", restaurantID).
		Order("position, name").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	var loose []models.Product
	err = r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Extras").
		Preload("ModifierGroups").
		Preload("ModifierGroups.Options").
		Where("restaurant_id = ? AND category_id IS NULL AND is_available = ?", restaurantID, true).
		Order("name").
		Find(&loose).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	return &Menu{Restaurant: *restaurant, Categories: categories, Uncategorized: loose}, nil
}

// Invalidate drops the cached menu so the next read goes to the database.
func (r *Repository) Invalidate(ctx context.Context, restaurantID uuid.UUID) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, MENU_CACHE_PREFIX+restaurantID.String()).Err()
}

func (r *Repository) MenuSummary(ctx context.Context, restaurantID uuid.UUID, maxItems int) (string, error) {
	menu, err := r.Menu(ctx, restaurantID)
	if err != nil {
		return "", err
	}
	return Summarize(menu, maxItems), nil
}
