package handlers

import (
	"errors"
	"net/http"

	"dinein-system/internal/catalog"
	"dinein-system/internal/lifecycle"
	"dinein-system/internal/orders"
	"dinein-system/internal/promotion"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func errorWithCode(message, code string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   code,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// --- Helper for mapping service errors to HTTP ---
func handleServiceError(c *gin.Context, log *zap.SugaredLogger, err error) {
	var selErr *orders.SelectionError
	var rejection *promotion.Rejection
	var transErr *lifecycle.TransitionError

	switch {
	case errors.As(err, &selErr):
		c.JSON(http.StatusBadRequest, errorWithCode(selErr.Error(), "INVALID_SELECTION"))
	case errors.As(err, &rejection):
		c.JSON(http.StatusBadRequest, errorWithCode(rejection.Message, string(rejection.Reason)))
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, errorWithCode(err.Error(), "UNKNOWN_STATUS"))
	case errors.As(err, &transErr):
		c.JSON(http.StatusConflict, errorWithCode(transErr.Error(), "ILLEGAL_TRANSITION"))
	case errors.Is(err, orders.ErrStatusConflict):
		c.JSON(http.StatusConflict, errorWithCode("Order was updated by someone else, reload and retry", "STATUS_CONFLICT"))
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, errorWithCode("Order not found", "NOT_FOUND"))
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, errorWithCode("Restaurant not found", "NOT_FOUND"))
	case errors.Is(err, promotion.ErrDuplicateCode):
		c.JSON(http.StatusConflict, errorWithCode("Promotion code already exists", "DUPLICATE_CODE"))
	default:
		log.Errorw("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorWithCode("Internal server error", "INTERNAL"))
	}
}
