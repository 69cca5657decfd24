package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/api/middleware"
	"invest-ledger/internal/service"
)

// statusFor сопоставляет ошибку сервиса с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInsufficientProfitBalance),
		errors.Is(err, service.ErrWrongType):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrDuplicateIdentity),
		errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ошибку в ответ. Внутренние ошибки не раскрываются клиенту.
func respondError(c *gin.Context, logger *logrus.Logger, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("Failed to %s: %v", action, err)
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentUser возвращает id пользователя из токена или отвечает 401
func currentUser(c *gin.Context) (string, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}
