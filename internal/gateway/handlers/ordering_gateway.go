package handlers

import (
	"context"
	"net/http"
	"time"

	"dinein-system/internal/audit"
	"dinein-system/internal/catalog"
	"dinein-system/internal/database/models"
	"dinein-system/internal/gateway/middleware"
	"dinein-system/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService interface {
	Quote(ctx context.Context, req orders.QuoteRequest) (*orders.Quote, error)
	Submit(ctx context.Context, req orders.SubmitRequest) (*models.Order, error)
	Get(ctx context.Context, restaurantID, id uuid.UUID) (*models.Order, error)
	ListSince(ctx context.Context, restaurantID uuid.UUID, since time.Time) ([]models.Order, error)
	Advance(ctx context.Context, restaurantID, id uuid.UUID, target, actor string) (*models.Order, error)
	History(ctx context.Context, restaurantID, id uuid.UUID) ([]audit.Entry, error)
}

type MenuSource interface {
	Menu(ctx context.Context, restaurantID uuid.UUID) (*catalog.Menu, error)
	Invalidate(ctx context.Context, restaurantID uuid.UUID) error
}

type OrderingHTTPHandler struct {
	orders OrderService
	menus  MenuSource
	log    *zap.SugaredLogger
}

func NewOrderingHTTPHandler(orders OrderService, menus MenuSource, log *zap.SugaredLogger) *OrderingHTTPHandler {
	return &OrderingHTTPHandler{
		orders: orders,
		menus:  menus,
		log:    log,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListOrdersQuery struct {
	Since      string `form:"since"`
	Restaurant string `form:"restaurant"`
}

type PollMeta struct {
	Count  int       `json:"count"`
	Limit  int       `json:"limit"`
	Since  time.Time `json:"since"`
	Cursor time.Time `json:"cursor"`
}

// --- Customer Handlers ---

func (h *OrderingHTTPHandler) GetMenu(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid restaurant ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	menu, err := h.menus.Menu(ctx, restaurantID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu retrieved successfully", menu))
}

func (h *OrderingHTTPHandler) Quote(c *gin.Context) {
	var req orders.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	quote, err := h.orders.Quote(ctx, req)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart priced successfully", quote))
}

func (h *OrderingHTTPHandler) SubmitOrder(c *gin.Context) {
	var req orders.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	order, err := h.orders.Submit(ctx, req)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order submitted successfully", order))
}

// --- Staff Handlers ---

// ListOrders is the poll endpoint of the kitchen display.
func (h *OrderingHTTPHandler) ListOrders(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	restaurantID := claims.RestaurantID
	if query.Restaurant != "" {
		id, err := uuid.Parse(query.Restaurant)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid restaurant ID"))
			return
		}
		if id != claims.RestaurantID {
			c.JSON(http.StatusForbidden, errorWithCode("Token is not valid for this restaurant", "FORBIDDEN"))
			return
		}
	}

	since := time.Now().UTC().Truncate(24 * time.Hour)
	if query.Since != "" {
		t, err := time.Parse(time.RFC3339Nano, query.Since)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid since timestamp, expected RFC3339"))
			return
		}
		since = t
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, err := h.orders.ListSince(ctx, restaurantID, since)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	cursor := since
	for _, o := range list {
		if o.UpdatedAt.After(cursor) {
			cursor = o.UpdatedAt
		}
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", list, PollMeta{
		Count:  len(list),
		Limit:  orders.MaxPollResults,
		Since:  since,
		Cursor: cursor,
	}))
}

func (h *OrderingHTTPHandler) GetOrder(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.orders.Get(ctx, claims.RestaurantID, id)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

func (h *OrderingHTTPHandler) UpdateStatus(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request body: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.orders.Advance(ctx, claims.RestaurantID, id, req.Status, claims.UserID)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order status updated successfully", order))
}

func (h *OrderingHTTPHandler) GetHistory(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.orders.History(ctx, claims.RestaurantID, id)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order history retrieved successfully", entries))
}

// --- Owner Handlers ---

func (h *OrderingHTTPHandler) RefreshMenu(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)
	restaurantID, err := uuid.Parse(c.Param("restaurant_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid restaurant ID"))
		return
	}
	if restaurantID != claims.RestaurantID {
		c.JSON(http.StatusForbidden, errorWithCode("Token is not valid for this restaurant", "FORBIDDEN"))
		return
	}

	if err := h.menus.Invalidate(c.Request.Context(), restaurantID); err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu cache cleared", nil))
}
