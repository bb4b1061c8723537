package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler answers from the last report so load balancer polling does not
// hammer the dependencies.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		report := c.Last()
		if report.Timestamp.IsZero() {
			report = c.Run(ctx.Request.Context())
		}

		httpStatus := http.StatusOK
		if report.Status != StatusHealthy {
			httpStatus = http.StatusServiceUnavailable
		}

		ctx.JSON(httpStatus, gin.H{
			"status":               report.Status,
			"message":              "Server is running",
			"unavailable_services": report.Unavailable(),
			"timestamp":            report.Timestamp,
		})
	}
}

func (c *Checker) DetailedHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		runCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		report := c.Run(runCtx)
		ctx.JSON(http.StatusOK, gin.H{
			"overall_status": report.Status,
			"services":       report.Services,
			"timestamp":      report.Timestamp,
		})
	}
}
