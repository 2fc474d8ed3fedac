package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"framesync/internal/handler"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	ImageHandler        *handler.ImageHandler
	DeviceHandler       *handler.DeviceHandler
	UserHandler         *handler.UserHandler
	NotificationHandler *handler.NotificationHandler
	DisplayHandler      *handler.DisplayHandler
	SystemHandler       *handler.SystemHandler
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", cfg.SystemHandler.Health)

	// Raw file serving
	r.Get("/uploads/{filename}", cfg.ImageHandler.ServeOriginal)
	r.Get("/thumbnails/{filename}", cfg.ImageHandler.ServeThumbnail)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", cfg.ImageHandler.Upload)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", cfg.ImageHandler.List)
			r.Post("/bulk-delete", cfg.ImageHandler.BulkDelete)
			r.Post("/bulk-devices", cfg.ImageHandler.BulkReplaceDevices)
			r.Delete("/{filename}", cfg.ImageHandler.Delete)
			r.Post("/{filename}/devices", cfg.ImageHandler.ReplaceDevices)
			r.Get("/{filename}/devices", cfg.ImageHandler.GetDevices)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Post("/register", cfg.DeviceHandler.Register)
			r.Get("/", cfg.DeviceHandler.List)
			r.Delete("/{id}", cfg.DeviceHandler.Delete)
			r.Get("/{id}/images", cfg.DeviceHandler.Images)
			r.Get("/{id}/next", cfg.DeviceHandler.Next)
			r.Post("/{id}/heartbeat", cfg.DeviceHandler.Heartbeat)
			r.Get("/{id}/notifications", cfg.NotificationHandler.Drain)
			r.Get("/{id}/display", cfg.DisplayHandler.Current)
		})

		r.Get("/users", cfg.UserHandler.List)
		r.Post("/user/name", cfg.UserHandler.SetName)

		r.Post("/display/{filename}", cfg.DisplayHandler.Show)

		r.Post("/notifications", cfg.NotificationHandler.Enqueue)
		r.Delete("/notifications/{id}", cfg.NotificationHandler.Acknowledge)

		r.Get("/storage", cfg.SystemHandler.Storage)
		r.Get("/stats", cfg.SystemHandler.Stats)
	})

	return r
}
