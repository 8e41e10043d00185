// Command pipeline-api serves the run-management REST API.
//
// @title Survey Pipeline API
// @version 1.0
// @description Trigger survey pipeline runs and inspect run and cache state.
// @BasePath /api/v1
package main

import (
	"github.com/joho/godotenv"

	_ "go-survey-pipeline/docs"
	"go-survey-pipeline/internal/api"
	"go-survey-pipeline/internal/api/handler"
	"go-survey-pipeline/internal/config"
	"go-survey-pipeline/internal/store"
	"go-survey-pipeline/pkg/router"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		panic(err)
	}
	if err := store.InitDB(cfg.TrackingDBPath()); err != nil {
		panic(err)
	}
	handler.Configure(cfg)

	r := router.New()
	api.RegisterRoutes(r)
	r.Start(":8080")
}
