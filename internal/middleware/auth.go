package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"dealhub/internal/utils"
)

const (
	// AuthorizationHeader header carrying the session token
	AuthorizationHeader = "Authorization"
	// BearerPrefix token scheme prefix
	BearerPrefix = "Bearer "
	// UserIDKey context key for the authenticated user id
	UserIDKey = "user_id"
	// NicknameKey context key for the authenticated nickname
	NicknameKey = "nickname"
)

// Auth validates the bearer token and stores the user identity in the
// request context
func Auth(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			utils.ErrorResponse(c, 401, "Missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			utils.ErrorResponse(c, 401, "Invalid authorization header format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := jwtManager.Parse(token)
		if err != nil {
			utils.ErrorResponse(c, 401, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(NicknameKey, claims.Nickname)
		c.Next()
	}
}

// GetUserID reads the authenticated user id from the request context
func GetUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
