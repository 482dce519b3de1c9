package rewards

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for rewards
type Handler struct {
	svc *Service
}

// NewHandler creates a new rewards handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up reward routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:userId/rewards/available", h.Available)
	r.POST("/users/:userId/rewards/redeem", h.Redeem)
}

// Available handles GET /users/:userId/rewards/available
func (h *Handler) Available(c *gin.Context) {
	rewards, err := h.svc.Available(c.Request.Context(), c.Param("userId"), time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "reward_error",
			"message": "Failed to list rewards",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// RedeemRequest is the body for POST /users/:userId/rewards/redeem
type RedeemRequest struct {
	RewardID string `json:"rewardId" binding:"required"`
}

// Redeem handles POST /users/:userId/rewards/redeem
func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	redemption, err := h.svc.Redeem(c.Request.Context(), c.Param("userId"), req.RewardID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, ErrRiskGated):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Redemption is not available for this account",
			})
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotActive):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Reward is not available",
			})
		case errors.Is(err, ErrNotEnoughPoint):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Insufficient points",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "reward_error",
				"message": "Failed to redeem reward",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redemption_id": redemption.ID,
		"reward": gin.H{
			"id":            redemption.Reward.ID,
			"title":         redemption.Reward.Title,
			"type":          redemption.Reward.Type,
			"value_display": redemption.Reward.ValueDisplay,
		},
		"voucher":               redemption.Voucher,
		"wallet_transaction_id": redemption.WalletTransactionID,
		"points_deducted":       redemption.PointsDeducted,
	})
}
