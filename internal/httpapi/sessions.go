package httpapi

import (
	"net/http"

	"consult-platform/internal/auth"
	"consult-platform/internal/history"
	"consult-platform/internal/session"
	"consult-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Session lifecycle handlers. Authorization inside each transition belongs to
// the session service; these handlers only supply the caller's identity.

func (h Handlers) CreateSession(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	var req session.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Sessions.Create(c.Request.Context(), uid, req)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

func (h Handlers) RespondSession(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sess, err := h.Sessions.Respond(c.Request.Context(), c.Param("session_id"), uid, req.Accept)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, sess)
}

type extendRequest struct {
	AdditionalMinutes int `json:"additional_minutes"`
}

func (h Handlers) ExtendSession(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	out, err := h.Sessions.Extend(c.Request.Context(), c.Param("session_id"), uid, req.AdditionalMinutes)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CompleteSession(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req session.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sess, err := h.Sessions.Complete(c.Request.Context(), c.Param("session_id"), uid, req)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, sess)
}

type rateRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

func (h Handlers) RateSession(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sess, err := h.Sessions.Rate(c.Request.Context(), c.Param("session_id"), uid, req.Rating, req.Feedback)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) GetSession(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	sess, err := h.Sessions.Get(c.Request.Context(), c.Param("session_id"), uid)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) TimeRemaining(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	tr, err := h.Sessions.CheckTimeRemaining(c.Request.Context(), c.Param("session_id"), uid)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, tr)
}

// AdminCancelSession force-cancels a session and refunds any reservation.
// RBAC: admin or super_admin.
func (h Handlers) AdminCancelSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	sess, err := h.Sessions.Cancel(c.Request.Context(), sessionID)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}

	if h.Audit != nil {
		actor, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		if err := h.Audit.LogSessionCancel(c.Request.Context(), actor, role, c.ClientIP(), sessionID, sess.CoinsReserved); err != nil {
			logger.FromGin(c).Error("cancel audit failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, sess)
}

// --- History ---

func (h Handlers) ListHistory(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	req := history.ListRequest{
		AccountID:  uid,
		AsProvider: c.Query("as") == "provider",
		Status:     session.Status(c.Query("status")),
		Page:       intQuery(c, "page", 1),
		PageSize:   intQuery(c, "page_size", 20),
	}
	page, err := h.History.List(c.Request.Context(), req)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) HistorySummary(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	out, err := h.History.Summary(c.Request.Context(), uid, c.Query("as") == "provider")
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, out)
}
