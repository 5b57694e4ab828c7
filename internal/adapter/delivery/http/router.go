// Package http provides the HTTP delivery layer for the link shortener.
// It contains the chi router, the handlers and the request and response
// types used to validate input and format output.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/linkly/docs"
	"github.com/vadimbarashkov/linkly/pkg/middleware/recoverer"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the link shortener.
func NewRouter(logger *httplog.Logger, linkUseCase linkUseCase) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.Get("/healthz", handleHealthz)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	h := newLinkHandler(linkUseCase, validator.New())

	r.Route("/api/links", func(r chi.Router) {
		r.Get("/", h.listLinks)
		r.Post("/", h.createLink)

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.getLink)
			r.Delete("/", h.deleteLink)
		})
	})

	r.Get("/{code}", h.redirect)

	return r
}
