package handlers

import (
	"context"
	"net/http"
	"time"

	"dinein-system/internal/gateway/middleware"
	"dinein-system/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RevenueReporter interface {
	Revenue(ctx context.Context, restaurantID uuid.UUID, day time.Time) (*orders.Revenue, error)
}

type ReportHTTPHandler struct {
	reports RevenueReporter
	log     *zap.SugaredLogger
}

func NewReportHTTPHandler(reports RevenueReporter, log *zap.SugaredLogger) *ReportHTTPHandler {
	return &ReportHTTPHandler{reports: reports, log: log}
}

type RevenueQuery struct {
	Date     string `form:"date"`
	Timezone string `form:"tz"`
}

// Revenue aggregates one calendar day, today in UTC unless date/tz say otherwise.
func (h *ReportHTTPHandler) Revenue(c *gin.Context) {
	claims, _ := middleware.ClaimsFrom(c)

	var query RevenueQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	loc := time.UTC
	if query.Timezone != "" {
		l, err := time.LoadLocation(query.Timezone)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid timezone"))
			return
		}
		loc = l
	}

	day := time.Now().In(loc)
	if query.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", query.Date, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid date format, use YYYY-MM-DD"))
			return
		}
		day = d
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rev, err := h.reports.Revenue(ctx, claims.RestaurantID, day)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Revenue retrieved successfully", rev))
}
