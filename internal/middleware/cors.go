package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"dealhub/internal/config"
)

// CORS builds the cross-origin policy from configuration
func CORS(cfg config.SecurityConfig) gin.HandlerFunc {
	c := cors.DefaultConfig()

	if len(cfg.CORS.AllowOrigins) > 0 {
		c.AllowOrigins = cfg.CORS.AllowOrigins
	} else {
		c.AllowAllOrigins = true
	}
	if len(cfg.CORS.AllowMethods) > 0 {
		c.AllowMethods = cfg.CORS.AllowMethods
	}
	if len(cfg.CORS.AllowHeaders) > 0 {
		c.AllowHeaders = cfg.CORS.AllowHeaders
	} else {
		c.AllowHeaders = []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
		}
	}
	c.AllowCredentials = cfg.CORS.AllowCredentials && !c.AllowAllOrigins

	return cors.New(c)
}
