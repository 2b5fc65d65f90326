package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"consult-platform/internal/audit"
	"consult-platform/internal/auth"
	"consult-platform/internal/catalog"
	"consult-platform/internal/history"
	"consult-platform/internal/ledger"
	"consult-platform/internal/session"
	"consult-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Coins    *ledger.Service
	Sessions *session.Service
	History  *history.Service
	Listings catalog.Lookup
	Audit    *audit.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (h Handlers) Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}

// --- Coins ---

func (h Handlers) GetBalance(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	bal, err := h.Coins.GetBalance(c.Request.Context(), uid)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (h Handlers) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": ledger.DefaultPackages()})
}

type purchaseRequest struct {
	PackageID string `json:"package_id"`
}

// PurchaseCoins credits a coin package to the caller's account.
// Payment capture is out of scope; the request is treated as already paid.
func (h Handlers) PurchaseCoins(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	pkg, ok := ledger.FindPackage(req.PackageID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown package"})
		return
	}

	entry, bal, err := h.Coins.Purchase(c.Request.Context(), uid, pkg.Coins)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}

	if h.Audit != nil {
		if err := h.Audit.LogCoinPurchase(c.Request.Context(), uid, c.ClientIP(), pkg.Coins, ""); err != nil {
			logger.FromGin(c).Error("purchase audit failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry, "balance": bal, "package": pkg})
}

func (h Handlers) ListTransactions(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)

	entries, err := h.Coins.AccountHistory(c.Request.Context(), uid, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "limit": limit, "offset": offset})
}

// --- Listings ---

func (h Handlers) GetListing(c *gin.Context) {
	listing, err := catalog.FindActive(c.Request.Context(), h.Listings, c.Param("listing_id"))
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, listing)
}

// --- Admin ---

type adminGrantRequest struct {
	AccountID string `json:"account_id"`
	Coins     int64  `json:"coins"`
	Reason    string `json:"reason"`
}

// AdminGrantCoins performs an admin-only coin credit.
// RBAC: admin or super_admin.
func (h Handlers) AdminGrantCoins(c *gin.Context) {
	var req adminGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" || req.Coins <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id and positive coins required"})
		return
	}

	_, bal, err := h.Coins.Purchase(c.Request.Context(), req.AccountID, req.Coins)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}

	if h.Audit != nil {
		actor, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		if err := h.Audit.LogAdminAction(c.Request.Context(), actor, role, c.ClientIP(), req.Reason, req.AccountID, req.Coins, ""); err != nil {
			logger.FromGin(c).Error("grant audit failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, bal)
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
