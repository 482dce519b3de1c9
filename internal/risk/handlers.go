package risk

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/steadyhq/steady/internal/validation"
)

// Handler provides HTTP endpoints for risk profiles
type Handler struct {
	svc *Service
}

// NewHandler creates a new risk handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up risk routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:userId/risk", h.Get)
	r.POST("/users/:userId/risk/flags", h.Flag)
}

// Get handles GET /users/:userId/risk
func (h *Handler) Get(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "risk_error",
			"message": "Failed to retrieve risk profile",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// FlagRequest is the body for POST /users/:userId/risk/flags
type FlagRequest struct {
	Code    string `json:"code" binding:"required"`
	Details string `json:"details"`
	Weight  int    `json:"weight"`
}

// Flag handles POST /users/:userId/risk/flags
func (h *Handler) Flag(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	profile, err := h.svc.Flag(c.Request.Context(),
		c.Param("userId"),
		validation.SanitizeString(req.Code, 64),
		validation.SanitizeString(req.Details, 1024),
		req.Weight)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateFlag):
			// Dedup is not a failure for the caller; return current state.
			c.JSON(http.StatusOK, gin.H{"profile": profile, "deduplicated": true})
		case errors.Is(err, ErrInvalidFlag):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "code is required and weight must be non-negative",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "risk_error",
				"message": "Failed to record risk flag",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}
