package middleware

import (
	"net/http"
	"strconv"

	"dinein-system/internal/admission"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Admission throttles one endpoint class per caller. Requests carrying claims
// from JWTAuth or OptionalJWT are keyed by user id, everyone else by client
// address.
func Admission(guard *admission.Guard, class admission.Class, rule admission.Rule, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := admission.ClientIdentity(c.Request.Header)
		if claims, ok := ClaimsFrom(c); ok {
			identity = "user:" + claims.UserID
		}

		decision, err := guard.Check(c.Request.Context(), admission.Key(class, identity), rule)
		if err != nil {
			// A broken counter must not take checkout down with it.
			log.Warnw("Admission check failed, letting request through", "class", class, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retry := admission.RetryAfter(decision, timeNow())
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     "Too many requests, please try again later",
				"error":       "RATE_LIMITED",
				"retry_after": retry,
			})
			return
		}

		c.Next()
	}
}
