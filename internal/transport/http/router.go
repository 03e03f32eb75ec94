package http

import (
	"net/http"

	"github.com/JagadeshwaranK/MedPlusMart/internal/config"
	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/JagadeshwaranK/MedPlusMart/internal/transport/http/handler"
	appmiddleware "github.com/JagadeshwaranK/MedPlusMart/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	throttle := func(next http.Handler) http.Handler { return next }
	if deps.Throttle != nil {
		throttle = deps.Throttle.Limit
	}
	issuance := appmiddleware.IssuanceLimit(deps.IssuanceLimit, cfg.TrustProxyHeaders, deps.Metrics)

	healthH := handler.NewHealthHandler(cfg.AppEnv)
	authH := handler.NewAuthHandler(deps.AuthService)

	authRoutes := func(r chi.Router) {
		r.With(issuance).Post("/send-otp", authH.SendOTP)
		r.With(throttle).Post("/verify-otp", authH.VerifyOTP)
		r.With(throttle).Post("/federated", authH.Federated)
		r.With(throttle).Post("/google", authH.Federated)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Tokens))
			r.Use(appmiddleware.RequireRole(domain.RoleCustomer))
			r.Get("/me", handler.Me)
		})
	}
	r.Route("/auth", authRoutes)
	r.Route("/api/auth", authRoutes)

	r.Get("/health", healthH.Check)
	r.Get("/api/health", healthH.Check)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Not found"}`))
	})

	return r
}
