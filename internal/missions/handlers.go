package missions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steadyhq/steady/internal/logging"
	"github.com/steadyhq/steady/internal/wallet"
)

// WalletCreditor credits reward points after a successful completion.
type WalletCreditor interface {
	Credit(ctx context.Context, userID string, amount int64, typ wallet.Type, source, relatedID string) (*wallet.Transaction, error)
}

// Broadcaster pushes completion events to connected realtime clients.
type Broadcaster interface {
	BroadcastMissionCompleted(userID, missionCode string, rewardPoints int64)
}

// Handler provides HTTP endpoints for missions
type Handler struct {
	svc       *Service
	wallet    WalletCreditor
	broadcast Broadcaster // nil disables realtime notifications
}

// NewHandler creates a new mission handler
func NewHandler(svc *Service, creditor WalletCreditor) *Handler {
	return &Handler{svc: svc, wallet: creditor}
}

// WithBroadcaster attaches a realtime broadcaster.
func (h *Handler) WithBroadcaster(b Broadcaster) *Handler {
	h.broadcast = b
	return h
}

// RegisterRoutes sets up mission routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:userId/missions/active", h.Active)
	r.POST("/users/:userId/missions/complete", h.Complete)
	r.POST("/users/:userId/missions/progress", h.Progress)
}

// Active handles GET /users/:userId/missions/active
func (h *Handler) Active(c *gin.Context) {
	assignments, err := h.svc.ActiveForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "mission_error",
			"message": "Failed to list active missions",
		})
		return
	}

	missions := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		missions = append(missions, gin.H{
			"mission_id":        a.Mission.ID,
			"type":              a.Mission.Type,
			"title":             a.Mission.Title,
			"description":       a.Mission.Description,
			"status":            a.UserMission.Status,
			"target_count":      a.Mission.TargetCount,
			"progress_count":    a.UserMission.ProgressCount,
			"reward_points":     a.Mission.RewardPoints,
			"score_impact_hint": a.Mission.ScoreImpactHint,
			"active_from":       a.Mission.ActiveFrom,
			"active_to":         a.Mission.ActiveTo,
		})
	}

	c.JSON(http.StatusOK, gin.H{"missions": missions})
}

// CompleteRequest is the body for POST /users/:userId/missions/complete
type CompleteRequest struct {
	MissionID    string `json:"mission_id" binding:"required"`
	ProofEventID string `json:"proof_event_id"`
}

// Complete handles POST /users/:userId/missions/complete
func (h *Handler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	userID := c.Param("userId")
	result, err := h.svc.Complete(c.Request.Context(), userID, req.MissionID, req.ProofEventID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveAssignment), errors.Is(err, ErrMissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No active assignment for this mission",
			})
		case errors.Is(err, ErrAlreadyTerminal):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Mission is already completed or expired",
			})
		case errors.Is(err, ErrInvalidProof):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "proof_event_id must reference an event owned by this user",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "mission_error",
				"message": "Failed to complete mission",
			})
		}
		return
	}

	// Crediting is the caller's side effect of completion, outside the
	// state transition itself.
	var pointsEarned int64
	if result.Mission.RewardPoints > 0 {
		tx, err := h.wallet.Credit(c.Request.Context(), userID, result.Mission.RewardPoints,
			wallet.TypeEarn, "mission_completion", result.UserMission.ID)
		if err != nil {
			logging.L(c.Request.Context()).Error("failed to credit mission reward",
				"user_id", userID,
				"mission", result.Mission.Code,
				"error", err,
			)
		} else {
			pointsEarned = tx.Amount
		}
	}

	if h.broadcast != nil {
		h.broadcast.BroadcastMissionCompleted(userID, result.Mission.Code, pointsEarned)
	}

	c.JSON(http.StatusOK, gin.H{
		"mission_id":   result.Mission.ID,
		"completed_at": result.UserMission.CompletedAt,
		"rewards": gin.H{
			"wallet_points_earned": pointsEarned,
		},
	})
}

// ProgressRequest is the body for POST /users/:userId/missions/progress
type ProgressRequest struct {
	MissionID string `json:"mission_id" binding:"required"`
	Increment int    `json:"increment"`
}

// Progress handles POST /users/:userId/missions/progress
func (h *Handler) Progress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	a, err := h.svc.Progress(c.Request.Context(), c.Param("userId"), req.MissionID, req.Increment)
	if err != nil {
		if errors.Is(err, ErrNoActiveAssignment) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No active assignment for this mission",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "mission_error",
			"message": "Failed to record progress",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mission_id":     a.Mission.ID,
		"status":         a.UserMission.Status,
		"progress_count": a.UserMission.ProgressCount,
		"target_count":   a.Mission.TargetCount,
	})
}
