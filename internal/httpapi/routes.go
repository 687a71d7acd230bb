package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/feed"
	"github.com/DoyleJ11/tugofwar/internal/ws"
)

func SetupRoutes(f *feed.Feed, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public, read-only routes
	r.Get("/healthz", Healthz)
	r.Get("/state", State(f))
	r.Get("/ws", ws.Handler(f, log))
	return r
}
