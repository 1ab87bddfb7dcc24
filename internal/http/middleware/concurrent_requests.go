package middleware

import (
	"net/http"

	"github.com/edirooss/zmux-analytics/internal/domain/analytics"
	"github.com/gin-gonic/gin"
)

// LimitConcurrentRequests rejects requests with 429 while maxConcurrent are
// already in flight.
//
// Example usage:
//
//	router.Use(LimitConcurrentRequests(16))
func LimitConcurrentRequests(maxConcurrent int) gin.HandlerFunc {
	semaphore := make(chan struct{}, maxConcurrent)

	return func(c *gin.Context) {
		select {
		case semaphore <- struct{}{}:
			defer func() { <-semaphore }()
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusTooManyRequests, analytics.ApiResponse{
				Code:    analytics.CodeRejected,
				Message: "too many concurrent requests",
			})
		}
	}
}
