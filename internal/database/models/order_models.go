package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Promotion struct {
	Base
	RestaurantID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_promotions_restaurant_code" json:"restaurant_id"`
	Code           string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_promotions_restaurant_code" json:"code"`
	Description    string          `gorm:"type:text" json:"description"`
	DiscountType   string          `gorm:"type:varchar(16);not null" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_value"`
	MinOrderAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"min_order_amount"`
	MaxUses        *int32          `json:"max_uses,omitempty"`
	CurrentUses    int32           `gorm:"not null;default:0" json:"current_uses"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
}

type Order struct {
	Base
	RestaurantID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	TableRef       string          `gorm:"type:varchar(32)" json:"table_ref,omitempty"`
	Status         string          `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CustomerName   string          `gorm:"type:varchar(128)" json:"customer_name,omitempty"`
	CustomerPhone  string          `gorm:"type:varchar(32);index" json:"customer_phone,omitempty"`
	CustomerEmail  string          `gorm:"type:varchar(128)" json:"customer_email,omitempty"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	PromotionCode  *string         `gorm:"type:varchar(32)" json:"promotion_code,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// FrozenExtra and FrozenModifier are the submission-time copies stored on an order item.
type FrozenExtra struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type FrozenModifier struct {
	GroupID    uuid.UUID       `json:"group_id"`
	GroupName  string          `json:"group_name"`
	OptionID   uuid.UUID       `json:"option_id"`
	OptionName string          `json:"option_name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type OrderItem struct {
	Base
	OrderID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    uuid.UUID        `gorm:"type:uuid;not null" json:"product_id"`
	ProductName  string           `gorm:"type:varchar(128);not null" json:"product_name"`
	VariantID    *uuid.UUID       `gorm:"type:uuid" json:"variant_id,omitempty"`
	VariantName  string           `gorm:"type:varchar(64)" json:"variant_name,omitempty"`
	BasePrice    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"base_price"`
	VariantDelta decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"variant_delta"`
	Extras       []FrozenExtra    `gorm:"type:jsonb;serializer:json" json:"extras"`
	Modifiers    []FrozenModifier `gorm:"type:jsonb;serializer:json" json:"modifiers"`
	UnitPrice    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity     int32            `gorm:"not null" json:"quantity"`
	LineTotal    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"line_total"`
	Note         string           `gorm:"type:text" json:"note,omitempty"`
}
