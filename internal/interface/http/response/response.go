package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/finders-backend/internal/logger"
	"github.com/ignatzorin/finders-backend/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Error пишет ошибку в формате {success, message, error{code, message, details}}.
// Поля details дублируются на верхнем уровне: клиент читает needsToPurchaseTokens прямо из тела.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.WithComponent("http").WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).WithError(err).Error("ошибка обработки запроса")
		}
		write(c, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	logger.WithComponent("http").WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}).WithError(err).Error("необработанная ошибка")
	write(c, http.StatusInternalServerError, apperror.ErrCodeInternal, "внутренняя ошибка сервера", nil)
}

func write(c *gin.Context, status int, code apperror.ErrorCode, message string, details map[string]any) {
	body := gin.H{
		"success": false,
		"message": message,
		"error": ErrorInfo{
			Code:    string(code),
			Message: message,
			Details: details,
		},
	}
	for k, v := range details {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func BadRequest(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message, nil)
}

func NotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, apperror.ErrCodeNotFound, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	write(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	write(c, http.StatusForbidden, apperror.ErrCodeForbidden, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"message": message,
		"error":   ErrorInfo{Code: "RATE_LIMITED", Message: message},
	})
}
