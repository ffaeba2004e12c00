package router

import (
	"net/http"

	"autofillTuner/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetLearningRoutes(e *echo.Echo, handler *rest.LearningHandler) {
	grp := e.Group("/learning")

	grp.POST("/sync", handler.Sync)
	grp.GET("/profile", handler.Profile)
	grp.POST("/feedback", handler.Feedback)
	grp.GET("/decision", handler.Decision)
}

func SetLearningAdminRoutes(e *echo.Echo, handler *rest.LearningAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := e.Group("/learning/admin", authRequired, adminOnly)

	admin.GET("/settings", handler.GetSettings)
	admin.PUT("/settings", handler.UpsertSettings)
	admin.POST("/aggregate", handler.Aggregate)
}

func SetOpsRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}
