package httpapi

import (
	"net/http"
	"time"

	"consult-platform/internal/auth"
	"consult-platform/pkg/logger"
	"consult-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// LimitCallStarts caps concurrent call setups per member. The slot is held
// only for the duration of the request; the TTL guards against slots leaked
// by a crashed process.
//
// A nil client disables the cap (single-process deployments and tests).
func LimitCallStarts(rdb *redis.Client, limit int) gin.HandlerFunc {
	const slotTTL = 30 * time.Second

	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		userID, err := auth.UserID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
			return
		}

		key := "callstart:" + userID
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), rdb, key, limit, slotTTL)
		if err != nil {
			// Fail open: the cap is protective, not a correctness invariant.
			logger.FromGin(c).Error("call start cap acquire failed", "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent call starts"})
			return
		}
		defer func() {
			if err := utils.ReleaseConcurrencyCap(c.Request.Context(), rdb, key); err != nil {
				logger.FromGin(c).Error("call start cap release failed", "err", err)
			}
		}()

		c.Next()
	}
}
