package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"cadence/config"
)

const (
	corsMethods = "GET,POST,PUT,DELETE,PATCH,OPTIONS"
	corsHeaders = "Origin,Content-Type,Accept,Authorization,X-Requested-With"
	corsMaxAge  = 3600
)

// CORS answers preflight requests and stamps the allow headers. Allowed
// origins come from config; an empty list allows any origin.
func CORS() fiber.Handler {
	allowed := make(map[string]struct{})
	for _, origin := range config.AppConfig.CORSAllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	maxAge := strconv.Itoa(corsMaxAge)

	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")

		if len(allowed) > 0 {
			if _, ok := allowed[origin]; ok {
				c.Set("Access-Control-Allow-Origin", origin)
				c.Set("Access-Control-Allow-Credentials", "true")
			}
		} else {
			c.Set("Access-Control-Allow-Origin", "*")
		}

		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", corsMethods)
			c.Set("Access-Control-Allow-Headers", corsHeaders)
			c.Set("Access-Control-Max-Age", maxAge)
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
