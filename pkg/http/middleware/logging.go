package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging emits one line per request with method, path, caller,
// status and latency.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			log.Printf("%s %s from %s -> %d in %s",
				req.Method,
				req.RequestURI,
				req.RemoteAddr,
				c.Response().Status,
				time.Since(start),
			)
			return err
		}
	}
}
