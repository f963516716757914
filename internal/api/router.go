package api

import (
	"github.com/datallboy/gocol/internal/api/controllers"
	"github.com/datallboy/gocol/internal/app"
	"github.com/datallboy/gocol/internal/catalog"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

// NewRouter returns an echo instance serving cat.
func NewRouter(app *app.Context, cat *catalog.Catalog) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, app, cat)
	return e
}

func RegisterRoutes(e *echo.Echo, app *app.Context, cat *catalog.Catalog) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s | %s", v.Method, v.URI, v.Status, v.Latency, c.Request().Header.Get("Range"))
			return nil
		},
	}))

	e.Use(serverHeader)

	colCtrl := &controllers.CollectionController{App: app, Catalog: cat}

	e.GET(domain.MetadataPath, colCtrl.HandleMetadata)
	e.GET(domain.ContentPathPrefix+"*", colCtrl.HandleContent)
}

func serverHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		c.Response().Header().Set("Server", controllers.ServerHeader)
		return next(c)
	}
}
