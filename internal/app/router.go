package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/health"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/quote"
	"github.com/noah-isme/backend-pos/internal/ratelimit"
	"github.com/noah-isme/backend-pos/internal/security"
)

// RouterOptions toggles the observability surface.
type RouterOptions struct {
	Metrics      *obs.HTTPMetrics
	Tracing      bool
	Pprof        http.Handler
	MaxBodyBytes int64
}

// NewRouter assembles the HTTP API.
func NewRouter(d *Dependencies, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(common.TerminalMiddleware)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{HSTS: 365 * 24 * time.Hour, HSTSSubdomains: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.Config.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", common.TerminalHeader},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{Checker: health.Deps{Redis: d.Redis, Policies: d.Policies, Breaker: d.SourceBreaker}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 256 << 10
	}
	quoteHandler := &quote.Handler{
		Service:  d.Quotes,
		Policies: d.Policies,
		Validate: d.Validator,
		Logger:   d.Logger,
	}
	if d.Redis != nil {
		quoteHandler.RefreshMiddleware = common.Idem{R: d.Redis, TTL: d.Config.IdempotencyTTL}.Middleware
	}
	if d.Config.QuoteRateLimit > 0 {
		quoteHandler.QuoteMiddleware = ratelimit.Handler{
			Limiter: d.Limiter,
			Config: ratelimit.Config{
				Key:    ratelimit.TerminalKey,
				Window: d.Config.QuoteRateWindow,
				Limit:  d.Config.QuoteRateLimit,
			},
			OnError: func(err error) {
				d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
			},
		}.Middleware
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: maxBody}.Middleware)
		quoteHandler.Routes(v)
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
