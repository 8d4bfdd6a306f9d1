package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/api/middleware"
	"github.com/SoumitraRai/BiFrost/internal/api/response"
	inputsanitize "github.com/SoumitraRai/BiFrost/internal/api/sanitize"
	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

func RegisterAuthRoutes(group *gin.RouterGroup, authService *service.AuthService, logger *zap.Logger) {
	handler := NewAuthHandler(authService, logger)
	auth := group.Group("/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", middleware.RateLimitByIP(10, time.Minute), handler.Login)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "All fields are required.")
		return
	}
	if req.Username == "" || req.Password == "" || req.Role == "" {
		response.Error(c, http.StatusBadRequest, "All fields are required.")
		return
	}

	role := model.UserRole(req.Role)
	if !role.Valid() {
		response.Error(c, http.StatusBadRequest, "All fields are required.")
		return
	}

	err := h.authService.Register(c.Request.Context(), inputsanitize.Text(req.Username), req.Password, role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			response.Error(c, http.StatusBadRequest, "Username already exists.")
		case errors.Is(err, service.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "All fields are required.")
		default:
			h.logger.Error("register failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to register user.")
		}
		return
	}

	response.Message(c, "Registered successfully.")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Username and password are required.")
		return
	}
	if req.Username == "" || req.Password == "" {
		response.Error(c, http.StatusBadRequest, "Username and password are required.")
		return
	}

	user, err := h.authService.Login(c.Request.Context(), inputsanitize.Text(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "Invalid username or password.")
		default:
			h.logger.Error("login failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to log in.")
		}
		return
	}

	response.OK(c, gin.H{
		"message": "Login successful.",
		"role":    user.Role,
	})
}
