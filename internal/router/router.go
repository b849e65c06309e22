package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"coursehub-backend/internal/handlers"
	"coursehub-backend/internal/logging"
	"coursehub-backend/internal/middleware"
)

type Options struct {
	JWTAuth         *middleware.JWTAuth
	LessonHandler   *handlers.LessonHandler
	ProgressHandler *handlers.ProgressHandler
	WebSocket       http.HandlerFunc
	// Owned by the caller, which stops it on shutdown.
	ProgressLimiter *middleware.RateLimiter
	FrontendURL     string
	Logger          *zap.Logger
}

func New(opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(opts.FrontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Course Routes ────
		r.Route("/courses/{courseID}", func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Get("/lessons", opts.LessonHandler.List)
			r.Get("/progress", opts.ProgressHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/lessons/bulk", opts.LessonHandler.BulkUpdate)
			})
		})

		// ──── Progress Routes ────
		r.Group(func(r chi.Router) {
			r.Use(opts.JWTAuth.Middleware)
			r.Use(opts.ProgressLimiter.Middleware)
			r.Post("/progress", opts.ProgressHandler.Report)
		})

		// ──── WebSocket ────
		if opts.WebSocket != nil {
			r.Get("/ws", opts.WebSocket)
		}
	})

	return r
}
