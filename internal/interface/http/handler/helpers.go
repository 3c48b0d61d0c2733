package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/finders-backend/internal/domain/valueobject"
	"github.com/ignatzorin/finders-backend/internal/http/middleware"
	"github.com/ignatzorin/finders-backend/internal/interface/http/response"
)

type caller struct {
	ID   uuid.UUID
	Role valueobject.Role
}

func (c caller) isAdmin() bool {
	return c.Role == valueobject.RoleAdmin
}

// currentUser пишет 401 и возвращает false, если пользователь не установлен.
func currentUser(c *gin.Context) (caller, bool) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return caller{}, false
	}
	return caller{ID: userID, Role: role}, true
}

// pathID - параметр уже проверен UUIDValidator, ошибка здесь означает неверную маршрутизацию.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "параметр "+name+" должен быть валидным UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseMoney(c *gin.Context, field, value string) (valueobject.Money, bool) {
	m, err := valueobject.ParseMoney(value)
	if err != nil {
		response.BadRequest(c, "некорректная сумма в поле "+field)
		return 0, false
	}
	return m, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
