package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"dealhub/internal/utils"
	"dealhub/pkg/log"
)

// Recovery panic recovery middleware
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(map[string]interface{}{
			"error":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"stack":  string(debug.Stack()),
		}).Error("Panic recovered")

		utils.ErrorResponse(c, 500, "Internal server error")
		c.Abort()
	})
}
