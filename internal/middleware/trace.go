package middleware

import (
	"autofillTuner/business/bandit"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TraceMiddleware reuses the caller's X-Request-ID or generates one, echoes
// it back, and puts it on the request context for service logs.
func TraceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			traceID := req.Header.Get(echo.HeaderXRequestID)
			if traceID == "" || len(traceID) > 128 {
				traceID = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, traceID)
			c.SetRequest(req.WithContext(bandit.WithTraceID(req.Context(), traceID)))

			return next(c)
		}
	}
}
