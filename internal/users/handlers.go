package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/steadyhq/steady/internal/validation"
)

// Handler provides HTTP endpoints for user operations
type Handler struct {
	svc *Service
}

// NewHandler creates a new user handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up user routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/users", h.Register)
	r.GET("/users/:userId", h.Get)
}

// RegisterRequest is the body for POST /users
type RegisterRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Register handles POST /users
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if req.ID != "" && !validation.IsValidUserID(req.ID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_user_id",
			"message": "id must be 1-128 chars of letters, digits, '.', '_' or '-'",
		})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.ID, req.DisplayName)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "user_exists",
				"message": "A user with this id already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "user_error",
			"message": "Failed to create user",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Get handles GET /users/:userId
func (h *Handler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "user_error",
			"message": "Failed to retrieve user",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
