package score

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steadyhq/steady/internal/features"
)

// Handler provides HTTP endpoints for score reads and recomputation
type Handler struct {
	svc *Service
}

// NewHandler creates a new score handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up score routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:userId/score", h.Get)
	r.GET("/users/:userId/score/history", h.History)
	r.POST("/users/:userId/score/recompute", h.Recompute)
}

// Get handles GET /users/:userId/score
func (h *Handler) Get(c *gin.Context) {
	current, actions, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, features.ErrUserNotFound) || errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "score_error",
			"message": "Failed to retrieve score",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":                  current.UserID,
		"total_score":              current.TotalScore,
		"sub_scores":               current.SubScores,
		"last_updated":             current.LastUpdated,
		"drivers":                  current.Drivers,
		"next_recommended_actions": actions,
	})
}

// History handles GET /users/:userId/score/history
func (h *Handler) History(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	points, err := h.svc.History(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "score_error",
			"message": "Failed to retrieve score history",
		})
		return
	}

	history := make([]gin.H, 0, len(points))
	for _, p := range points {
		history = append(history, gin.H{
			"timestamp":   p.Timestamp,
			"total_score": p.TotalScore,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Recompute handles POST /users/:userId/score/recompute
func (h *Handler) Recompute(c *gin.Context) {
	current, err := h.svc.Recompute(c.Request.Context(), c.Param("userId"), time.Now().UTC())
	if err != nil {
		if errors.Is(err, features.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "score_error",
			"message": "Failed to recompute score",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": current})
}
