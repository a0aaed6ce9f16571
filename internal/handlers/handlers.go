package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "parking/internal/errors"
	"parking/internal/logger"
	"parking/internal/middleware"
	"parking/internal/notifier"
	"parking/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultHeartbeat = 15 * time.Second

type Handlers struct {
	services  *service.Services
	broker    *notifier.Broker
	heartbeat time.Duration
}

func NewHandlers(services *service.Services, broker *notifier.Broker) *Handlers {
	return &Handlers{
		services:  services,
		broker:    broker,
		heartbeat: defaultHeartbeat,
	}
}

// handleServiceError переводит доменные ошибки в HTTP статусы
func handleServiceError(c *gin.Context, err error, msg string) {
	var conflict *apperrors.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   err.Error(),
			"slot_id": conflict.SlotID,
			"start":   conflict.Start,
			"end":     conflict.End,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrStaleConfirmation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		logger.WithContext(c.Request.Context()).Error(msg, "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// currentUser достает пользователя, установленного middleware.Auth
func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
