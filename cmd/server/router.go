package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tubetone/tubetone-api/internal/api"
	apiMiddleware "github.com/tubetone/tubetone-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	convertHandler := api.NewConvertHandler(app.service)
	taskHandler := api.NewTaskHandler(app.service)
	downloadHandler := api.NewDownloadHandler(app.service)
	healthHandler := api.NewHealthHandler(app.db)

	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", convertHandler.Convert)
		r.Get("/status/{taskId}", taskHandler.GetStatus)
		r.Get("/download/{taskId}", downloadHandler.Download)
		r.Get("/stream/{taskId}", downloadHandler.Stream)
		r.Post("/cleanup", taskHandler.Cleanup)
		r.Post("/retry", taskHandler.Retry)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
