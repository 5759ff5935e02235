package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns a request ID to every request.
// An incoming X-Request-ID header is honored so IDs propagate across services;
// otherwise a new UUID is generated. The ID is stored on the echo context and
// echoed back in the response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(requestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}

			c.Set("request_id", rid)
			c.Response().Header().Set(requestIDHeader, rid)

			return next(c)
		}
	}
}
