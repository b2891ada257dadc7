package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/receipt-processor/internal/common"
	"github.com/noah-isme/receipt-processor/internal/config"
	"github.com/noah-isme/receipt-processor/internal/health"
	"github.com/noah-isme/receipt-processor/internal/obs"
	"github.com/noah-isme/receipt-processor/internal/ratelimit"
	"github.com/noah-isme/receipt-processor/internal/receipt"
	"github.com/noah-isme/receipt-processor/internal/security"
)

// ServiceName identifies the service in traces and logs.
const ServiceName = "receipt-processor"

// Dependencies enumerates the shared services the HTTP router is built from.
type Dependencies struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Store       *receipt.Store
	Redis       *redis.Client
	HTTPMetrics *obs.HTTPMetrics
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	Pprof   PprofConfig
	Tracing bool
}

// PprofConfig controls the /debug/pprof mount.
type PprofConfig struct {
	Enabled bool
	User    string
	Pass    string
}

// NewRouter assembles middleware and routes for the receipt API.
func NewRouter(d Dependencies) http.Handler {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	store := d.Store
	if store == nil {
		store = receipt.NewStore()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.RouteSpanMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins))
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	if d.Pprof.Enabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), d.Pprof.User, d.Pprof.Pass))
	}

	healthHandler := health.Handler{Checker: readinessChecker{store: store, redis: d.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limiter := ratelimit.Handler{
		Limiter: newLimiter(d.Redis),
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP,
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	logger := d.Logger
	receiptHandler := receipt.NewHandler(receipt.HandlerConfig{Repository: store, Logger: &logger})
	r.Route("/receipts", func(rr chi.Router) {
		rr.Use(limiter.Middleware)
		receiptHandler.Routes(rr, idem.Middleware)
	})

	if d.Tracing {
		return otelhttp.NewHandler(r, ServiceName)
	}
	return r
}

func newLimiter(client *redis.Client) ratelimit.Allower {
	if client != nil {
		return ratelimit.RedisLimiter{Client: client, Prefix: "ratelimit:"}
	}
	return ratelimit.NewMemoryLimiter("ratelimit")
}
