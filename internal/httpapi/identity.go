package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserIDHeader заголовок с ID пользователя. API рассчитано на работу
// за аутентифицирующим прокси, который выставляет этот заголовок.
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "Authorization required",
			})
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "Invalid user id",
			})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
