package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"chatline/internal/config"
	"chatline/internal/handlers"
	"chatline/internal/middleware"
	"chatline/internal/observability"
)

// New assembles the public HTTP surface: auth endpoints, JWT-protected chat
// and upload endpoints, the attachment file server, and the websocket
// entrypoint.
func New(
	authH *handlers.AuthHandler,
	chatH *handlers.ChatHandler,
	uploadH *handlers.UploadHandler,
	wsH http.Handler,
	cfg *config.Config,
) http.Handler {

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Post("/api/auth/register", authH.Register)
	r.Post("/api/auth/login", authH.Login)
	r.Post("/api/auth/send-otp", authH.SendOTP)
	r.Post("/api/auth/verify-otp", authH.VerifyOTP)
	r.Get("/api/auth/search-users", authH.SearchUsers)

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience))

		p.Get("/api/auth/profile", authH.Profile)
		p.Get("/api/chat/messages/{otherId}", chatH.History)
		p.Get("/api/chat/users", chatH.Users)
		p.Post("/api/upload", uploadH.Upload)
	})

	r.Handle("/uploads/*", uploadH.Serve())
	r.Handle("/ws", wsH)

	return r
}
