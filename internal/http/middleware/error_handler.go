package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
	"github.com/ignatzorin/finders-backend/internal/logger"
)

// ErrorHandler отдаёт последнюю ошибку из c.Errors, если обработчик сам не ответил.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		response.Error(c, c.Errors.Last().Err)
	}
}

// Recovery превращает панику обработчика в 500 и пишет стек в лог.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithComponent("http").WithFields(logrus.Fields{
					"panic":  r,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
					"stack":  string(debug.Stack()),
				}).Error("паника в обработчике")
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"success": false,
						"message": "внутренняя ошибка сервера",
						"error":   response.ErrorInfo{Code: "INTERNAL_ERROR", Message: "внутренняя ошибка сервера"},
					})
				}
			}
		}()
		c.Next()
	}
}

// RequestLogger пишет в лог метод, путь, статус и длительность запроса.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		entry := logger.WithComponent("http").WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"ip":     c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("запрос завершился ошибкой")
			return
		}
		entry.Debug("запрос обработан")
	}
}
