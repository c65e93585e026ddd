package httpapi

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"vectorize/internal/http/handlers"
	"vectorize/internal/infra"
	"vectorize/internal/metrics"
	mw "vectorize/internal/middleware"
)

type Options struct {
	Logger         infra.Logger
	Metrics        *metrics.Collector
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; requests from anywhere else are
	// keyed on their connection address.
	TrustedProxies []netip.Prefix
	// GeneratePerMinute limits generate calls per client IP; zero disables it.
	GeneratePerMinute int
}

// NewRouter wires every route. ctx bounds background work owned by the
// router, such as the rate limiter cleanup.
func NewRouter(ctx context.Context, app *handlers.App, opts Options) http.Handler {
	var (
		observer mw.HTTPObserver
		onReject func()
	)
	if opts.Metrics != nil {
		observer = opts.Metrics
		onReject = opts.Metrics.ObserveRateLimited
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID, mw.PeerAddr)
	if len(opts.TrustedProxies) > 0 {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		mw.Logger(opts.Logger, observer),
		mw.CORS(opts.AllowedOrigins),
	)

	r.Get("/", app.Index)
	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/styles", app.ListStyles)

	r.Route("/v1/session", func(r chi.Router) {
		r.Get("/", app.GetSession)
		r.Post("/image", app.UploadImage)
		r.Delete("/image", app.ClearImage)
		r.Get("/image/preview", app.PreviewImage)
		r.Put("/style", app.SelectStyle)
		r.With(mw.RateLimit(ctx, opts.GeneratePerMinute, opts.TrustedProxies, onReject)).Post("/generate", app.Generate)
		r.Get("/result", app.DownloadResult)
	})

	return r
}
