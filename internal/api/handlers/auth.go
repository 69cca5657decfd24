package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/api/middleware"
	"invest-ledger/internal/service"
)

// AuthHandler обработчик для аутентификации
type AuthHandler struct {
	service       *service.LedgerService
	jwtMiddleware *middleware.JWTMiddleware
	expiration    time.Duration
	logger        *logrus.Logger
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(service *service.LedgerService, jwtMiddleware *middleware.JWTMiddleware, expiration time.Duration, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service:       service,
		jwtMiddleware: jwtMiddleware,
		expiration:    expiration,
		logger:        logger,
	}
}

// RegisterRequest запрос на регистрацию
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50"`
	DisplayName  string `json:"displayName" binding:"max=100"`
	Phone        string `json:"phone" binding:"max=32"`
	Password     string `json:"password" binding:"required,min=6,max=72"`
	ReferralCode string `json:"referralCode"`
}

// LoginRequest запрос на авторизацию
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PasswordResetRequest заявка на сброс пароля
type PasswordResetRequest struct {
	Username string `json:"username" binding:"required"`
	Contact  string `json:"contact" binding:"required"`
}

// Register регистрирует нового пользователя
// @Summary Register a new user
// @Description Register a new user, optionally with a referral code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), service.RegisterInput{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Phone:        req.Phone,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondError(c, h.logger, "register user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login авторизует пользователя
// @Summary Login user
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/v1/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.service.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, "authenticate user", err)
		return
	}

	token, err := h.jwtMiddleware.GenerateToken(user.ID, user.Username, user.Role, h.expiration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// RequestPasswordReset создает заявку на сброс пароля
// @Summary Request password reset
// @Description Create a password reset ticket for manual resolution by an admin
// @Tags auth
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset data"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/password-resets [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if _, err := h.service.CreatePasswordResetRequest(c.Request.Context(), req.Username, req.Contact); err != nil {
		respondError(c, h.logger, "create password reset request", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Password reset request submitted"})
}
