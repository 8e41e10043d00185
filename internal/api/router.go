package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	"go-survey-pipeline/internal/api/handler"
	"go-survey-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/runs", handler.CreateRun)
	r.GET("/api/v1/runs", handler.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/manifest", handler.GetRunManifest)
	r.GET("/api/v1/runs/*/progress", handler.GetRunProgress)
	r.GET("/api/v1/runs/*/errors", handler.GetRunErrors)
	// Generic run route last
	r.GET("/api/v1/runs/*", handler.GetRun)

	r.GET("/api/v1/cache/stats", handler.GetCacheStats)

	r.GET("/swagger/*", router.HandlerFunc(httpSwagger.WrapHandler))
}
