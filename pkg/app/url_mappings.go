package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osvaldoandrade/osintq/internal/controllers"
	"github.com/osvaldoandrade/osintq/internal/middleware"
)

func SetupMappings(app *Application) {
	app.Engine.GET("/health", controllers.NewHealthController(app.Store).Handle)
	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := app.Engine.Group("/v1/osintq", middleware.AuthMiddleware(app.Validator))
	{
		v1.POST("/investigations",
			middleware.RateLimitSubmit(app.RateLimiter, app.Config),
			controllers.NewStartInvestigationController(app.Agent).Handle)
		v1.GET("/investigations/:id", controllers.NewGetInvestigationController(app.Agent).Handle)
	}

	if app.Tools != nil {
		t := app.Engine.Group("/v1/tools")
		t.POST("/search", app.Tools.SearchHandler)
		t.POST("/scrape", app.Tools.ScrapeHandler)
		t.POST("/extract", app.Tools.ExtractHandler)
		t.GET("/health", app.Tools.HealthHandler)
	}
}
