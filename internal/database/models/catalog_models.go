package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base carries the uuid primary key shared by every tenant-scoped table.
// IDs are assigned in Go before insert.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Restaurant struct {
	Base
	Name         string `gorm:"type:varchar(128);not null" json:"name"`
	Slug         string `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
	Currency     string `gorm:"type:char(3);not null;default:'USD'" json:"currency"`
	OpeningHours string `gorm:"type:text" json:"opening_hours"`
	Timezone     string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	IsActive     bool   `gorm:"not null" json:"is_active"`

	Categories []Category `gorm:"foreignKey:RestaurantID" json:"categories,omitempty"`
}

type Category struct {
	Base
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name         string    `gorm:"type:varchar(128);not null" json:"name"`
	Position     int32     `gorm:"not null;default:0" json:"position"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

type Product struct {
	Base
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	CategoryID   *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Name         string          `gorm:"type:varchar(128);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	BasePrice    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"base_price"`
	IsAvailable  bool            `gorm:"not null" json:"is_available"`

	Variants       []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Extras         []ProductExtra   `gorm:"foreignKey:ProductID" json:"extras,omitempty"`
	ModifierGroups []ModifierGroup  `gorm:"foreignKey:ProductID" json:"modifier_groups,omitempty"`
}

type ProductVariant struct {
	Base
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Name       string          `gorm:"type:varchar(64);not null" json:"name"`
	PriceDelta decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price_delta"`
}

type ProductExtra struct {
	Base
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string          `gorm:"type:varchar(64);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
}

type ModifierGroup struct {
	Base
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	MinSelect int32     `gorm:"not null;default:0" json:"min_select"`
	MaxSelect int32     `gorm:"not null;default:1" json:"max_select"`

	Options []ModifierOption `gorm:"foreignKey:GroupID" json:"options,omitempty"`
}

type ModifierOption struct {
	Base
	GroupID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"group_id"`
	Name       string          `gorm:"type:varchar(64);not null" json:"name"`
	PriceDelta decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price_delta"`
}

// ChatContact links a messaging-channel sender to the restaurant they talk to.
type ChatContact struct {
	Base
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	SenderID     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"sender_id"`
	Phone        string    `gorm:"type:varchar(32)" json:"phone"`
	Locale       string    `gorm:"type:varchar(8);not null;default:'en'" json:"locale"`

	Restaurant *Restaurant `gorm:"foreignKey:RestaurantID" json:"restaurant,omitempty"`
}

type NotificationRecipient struct {
	Base
	RestaurantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name           string    `gorm:"type:varchar(64)" json:"name"`
	TelegramChatID int64     `gorm:"not null" json:"telegram_chat_id"`
	OptedIn        bool      `gorm:"not null" json:"opted_in"`
}
