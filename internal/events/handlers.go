package events

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steadyhq/steady/internal/pagination"
	"github.com/steadyhq/steady/internal/validation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	// listLookback bounds the ingestion-facing list endpoint to the same
	// window feature computation reads.
	listLookback = 90 * 24 * time.Hour
)

// Handler provides HTTP endpoints for event ingestion and listing
type Handler struct {
	svc *Service
}

// NewHandler creates a new event handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up event routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users/:userId/events", h.Create)
	r.GET("/users/:userId/events", h.List)
}

// CreateRequest is the body for POST /users/:userId/events
type CreateRequest struct {
	EventType  string         `json:"eventType" binding:"required"`
	Category   string         `json:"category" binding:"required"`
	Timestamp  *time.Time     `json:"timestamp"`
	Properties map[string]any `json:"properties"`
	DeviceID   string         `json:"deviceId"`
	RiskScore  *float64       `json:"riskScore"`
}

// Create handles POST /users/:userId/events
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if req.RiskScore != nil && (*req.RiskScore < 0 || *req.RiskScore > 1) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_risk_score",
			"message": "riskScore must be within [0,1]",
		})
		return
	}

	in := CreateInput{
		EventType:  validation.SanitizeString(req.EventType, 255),
		Category:   Category(req.Category),
		Properties: req.Properties,
		DeviceID:   validation.SanitizeString(req.DeviceID, 128),
		RiskScore:  req.RiskScore,
	}
	if req.Timestamp != nil {
		in.Timestamp = *req.Timestamp
	}

	event, err := h.svc.Create(c.Request.Context(), c.Param("userId"), in)
	if err != nil {
		if errors.Is(err, ErrInvalidCategory) || errors.Is(err, ErrEmptyEventType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "event_error",
			"message": "Failed to record event",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// List handles GET /users/:userId/events
func (h *Handler) List(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is malformed",
		})
		return
	}

	all, err := h.svc.ListSince(c.Request.Context(), c.Param("userId"), time.Now().UTC().Add(-listLookback))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "event_error",
			"message": "Failed to list events",
		})
		return
	}

	// Events come back newest first; the cursor marks the last returned
	// (timestamp, id) pair and pages strictly past it.
	if cursor != nil {
		idx := -1
		for i, e := range all {
			if cursor.Matches(e.Timestamp, e.ID) {
				idx = i
				break
			}
			if e.Timestamp.Before(cursor.Timestamp) {
				break
			}
		}
		if idx >= 0 {
			all = all[idx+1:]
		}
	}

	page := all
	if len(page) > limit+1 {
		page = page[:limit+1]
	}
	items, next, hasMore := pagination.ComputePage(page, limit, func(e *Event) (time.Time, string) {
		return e.Timestamp, e.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"events":      items,
		"next_cursor": next,
		"has_more":    hasMore,
	})
}
