package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/clauseguard/clauseguard/pkg/aiclient"
	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/entitlement"
	"github.com/clauseguard/clauseguard/pkg/httpserver"
)

// Options configures the API module. Catalog, Engine, Recorder, Usage and
// Manager are required; Generator is optional and disables the AI routes
// when absent.
type Options struct {
	Catalog   *catalog.Catalog
	Engine    *entitlement.Engine
	Recorder  *entitlement.Recorder
	Usage     entitlement.UsageStore
	Manager   *billing.Manager
	Generator aiclient.Generator
	Logger    *slog.Logger

	// AllowedOrigins for browser clients (the web app and the extension).
	// Empty means same-origin only.
	AllowedOrigins []string

	// ReadyChecks gate the health endpoint on backing dependencies; with
	// none registered it reports plain liveness.
	ReadyChecks []func(context.Context) error
}

type api struct {
	catalog   *catalog.Catalog
	engine    *entitlement.Engine
	recorder  *entitlement.Recorder
	usage     entitlement.UsageStore
	manager   *billing.Manager
	generator aiclient.Generator
	log       *slog.Logger
}

// Router builds the service's HTTP router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", api.Router(api.Options{...}))
func Router(opts Options) chi.Router {
	if opts.Catalog == nil {
		panic("api: catalog is required")
	}
	if opts.Engine == nil {
		panic("api: entitlement engine is required")
	}
	if opts.Recorder == nil {
		panic("api: usage recorder is required")
	}
	if opts.Usage == nil {
		panic("api: usage store is required")
	}
	if opts.Manager == nil {
		panic("api: billing manager is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &api{
		catalog:   opts.Catalog,
		engine:    opts.Engine,
		recorder:  opts.Recorder,
		usage:     opts.Usage,
		manager:   opts.Manager,
		generator: opts.Generator,
		log:       opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", HeaderUserID},
			AllowCredentials: true,
		}).Handler)
	}

	r.Get("/health", httpserver.HealthHandler(opts.Logger, opts.ReadyChecks...))

	// Provider webhooks authenticate by signature, not by user header.
	r.Post("/webhooks/paddle", a.handlePaddleWebhook)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(a.requireUser)

		v1.Post("/entitlements/check", a.handleCheckEntitlement)
		v1.Post("/usage", a.handleRecordUsage)
		v1.Get("/usage", a.handleGetUsage)

		v1.Get("/plans", a.handleListPlans)
		v1.Get("/plans/{id}", a.handleGetPlan)

		v1.Route("/subscription", func(sub chi.Router) {
			sub.Get("/", a.handleGetSubscription)
			sub.Post("/checkout", a.handleCheckout)
			sub.Post("/preview", a.handlePreview)
			sub.Post("/cancel", a.handleCancel)
			sub.Post("/portal", a.handlePortal)
		})

		if a.generator != nil {
			v1.Post("/documents/analyze", a.handleAnalyzeDocument)
			v1.Post("/ai/query", a.handleAIQuery)
		}
	})

	return r
}
