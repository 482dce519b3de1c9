package wallet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for wallet reads
type Handler struct {
	svc *Service
}

// NewHandler creates a new wallet handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up wallet routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:userId/wallet", h.Get)
}

// Get handles GET /users/:userId/wallet
func (h *Handler) Get(c *gin.Context) {
	userID := c.Param("userId")

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	balance, err := h.svc.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "wallet_error",
			"message": "Failed to retrieve balance",
		})
		return
	}

	txs, err := h.svc.Transactions(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "wallet_error",
			"message": "Failed to retrieve transactions",
		})
		return
	}

	transactions := make([]gin.H, 0, len(txs))
	for _, tx := range txs {
		entry := gin.H{
			"transaction_id": tx.ID,
			"type":           tx.Type,
			"amount":         tx.Amount,
			"currency":       tx.Currency,
			"source":         tx.Source,
			"created_at":     tx.CreatedAt,
		}
		if tx.RelatedID != "" {
			entry["related_id"] = tx.RelatedID
		}
		transactions = append(transactions, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      gin.H{"points": balance},
		"transactions": transactions,
	})
}
