package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"dinein-system/internal/database/models"
	"dinein-system/internal/gateway/middleware"
	"dinein-system/internal/promotion"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PromotionChecker interface {
	Validate(ctx context.Context, code string, restaurantID uuid.UUID, subtotal decimal.Decimal) (promotion.Result, error)
}

type PromotionStore interface {
	Create(ctx context.Context, promo *models.Promotion) error
	List(ctx context.Context, restaurantID uuid.UUID) ([]models.Promotion, error)
}

type PromotionHTTPHandler struct {
	checker PromotionChecker
	store   PromotionStore
	log     *zap.SugaredLogger
}

func NewPromotionHTTPHandler(checker PromotionChecker, store PromotionStore, log *zap.SugaredLogger) *PromotionHTTPHandler {
	return &PromotionHTTPHandler{
		checker: checker,
		store:   store,
		log:     log,
	}
}

type ValidatePromoRequest struct {
	Code         string           `json:"code" binding:"required"`
	RestaurantID uuid.UUID        `json:"restaurant_id" binding:"required"`
	OrderTotal   *decimal.Decimal `json:"order_total" binding:"required"`
}

type ValidatePromoResponse struct {
	Valid         bool            `json:"valid"`
	Discount      decimal.Decimal `json:"discount"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Description   string          `json:"description"`
}

type ValidatePromoError struct {
	Valid  bool             `json:"valid"`
	Reason promotion.Reason `json:"reason"`
	Error  string           `json:"error"`
}

type CreatePromotionRequest struct {
	Code           string           `json:"code" binding:"required,max=32"`
	Description    string           `json:"description"`
	DiscountType   string           `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue  decimal.Decimal  `json:"discount_value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount,omitempty"`
	MaxUses        *int32           `json:"max_uses,omitempty" binding:"omitempty,min=1"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
}

// ValidatePromo answers the public promotion check. It keeps its own response
// shape rather than the APIResponse envelope.
func (h *PromotionHTTPHandler) ValidatePromo(c *gin.Context) {
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ValidatePromoError{Error: "code, restaurant_id and order_total are required"})
		return
	}
	orderTotal := *req.OrderTotal
	if orderTotal.IsNegative() {
		c.JSON(http.StatusBadRequest, ValidatePromoError{Error: "order_total must not be negative"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.checker.Validate(ctx, req.Code, req.RestaurantID, orderTotal)
	if err != nil {
		h.log.Errorw("Promotion check failed", "code", req.Code, "error", err)
		c.JSON(http.StatusInternalServerError, ValidatePromoError{Error: "Failed to validate promotion"})
		return
	}

	if !res.Valid {
		httpStatus := http.StatusBadRequest
		if res.Reason == promotion.ReasonCodeNotFound {
			httpStatus = http.StatusNotFound
		}
		c.JSON(httpStatus, ValidatePromoError{Reason: res.Reason, Error: res.Message})
		return
	}

	c.JSON(http.StatusOK, ValidatePromoResponse{
		Valid:         true,
		Discount:      res.Discount,
		DiscountType:  res.Promotion.DiscountType,
		DiscountValue: res.Promotion.DiscountValue,
		Description:   res.Promotion.Description,
	})
}

func (h *PromotionHTTPHandler) CreatePromotion(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Promotion code must not be blank"))
		return
	}
	if !req.DiscountValue.IsPositive() {
		c.JSON(http.StatusBadRequest, errorResponse("discount_value must be positive"))
		return
	}
	if req.DiscountType == models.DiscountTypePercentage && req.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		c.JSON(http.StatusBadRequest, errorResponse("Percentage discount cannot exceed 100"))
		return
	}

	promo := &models.Promotion{
		RestaurantID:   claims.RestaurantID,
		Code:           req.Code,
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: decimal.Zero,
		MaxUses:        req.MaxUses,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       true,
	}
	if req.MinOrderAmount != nil {
		promo.MinOrderAmount = *req.MinOrderAmount
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Create(ctx, promo); err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Promotion created successfully", promo))
}

func (h *PromotionHTTPHandler) ListPromotions(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	promos, err := h.store.List(ctx, claims.RestaurantID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Promotions retrieved successfully", promos, gin.H{"count": len(promos)}))
}
