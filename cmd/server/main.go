package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clauseguard/clauseguard/modules/api"
	"github.com/clauseguard/clauseguard/pkg/aiclient"
	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/config"
	"github.com/clauseguard/clauseguard/pkg/docstore"
	"github.com/clauseguard/clauseguard/pkg/email"
	"github.com/clauseguard/clauseguard/pkg/entitlement"
	"github.com/clauseguard/clauseguard/pkg/httpserver"
	"github.com/clauseguard/clauseguard/pkg/logger"
	mongodb "github.com/clauseguard/clauseguard/pkg/mongo"
	redisconn "github.com/clauseguard/clauseguard/pkg/redis"
)

type appConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"clauseguard"`

	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PlansFile      string        `env:"PLANS_FILE"`
	SweepInterval  time.Duration `env:"EXPIRE_SWEEP_INTERVAL" envDefault:"1h"`

	BillingEnabled  bool          `env:"BILLING_ENABLED" envDefault:"false"`
	WebhookDedupTTL time.Duration `env:"WEBHOOK_DEDUP_TTL" envDefault:"96h"`

	// Paddle price IDs per plan and cycle; unset pairs are simply not
	// purchasable.
	PriceProMonthly        string `env:"PADDLE_PRICE_PRO_MONTHLY"`
	PriceProAnnual         string `env:"PADDLE_PRICE_PRO_ANNUAL"`
	PriceEnterpriseMonthly string `env:"PADDLE_PRICE_ENTERPRISE_MONTHLY"`
	PriceEnterpriseAnnual  string `env:"PADDLE_PRICE_ENTERPRISE_ANNUAL"`

	AIEnabled bool `env:"AI_ENABLED" envDefault:"true"`

	// Identity lives in the upstream gateway; lifecycle emails derive the
	// address as <user-id>@EmailUserDomain when set, and are disabled
	// otherwise.
	EmailEnabled    bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	EmailUserDomain string `env:"EMAIL_USER_DOMAIN"`
	EmailDevDir     string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Environment, cfg.ServiceName))
	slog.SetDefault(log)

	var mongoCfg mongodb.Config
	config.MustLoad(&mongoCfg)
	db, err := mongodb.NewWithDatabase(ctx, mongoCfg)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	var redisCfg redisconn.Config
	config.MustLoad(&redisCfg)
	redisClient, err := redisconn.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	docs := docstore.NewMongoStore(db)
	// One active subscription per user, enforced at the storage layer.
	if err := docs.EnsureUniqueIndex(ctx, billing.SubscriptionCollection,
		[]string{"user_id"}, map[string]any{"status": string(billing.StatusActive)}); err != nil {
		return fmt.Errorf("ensure subscription index: %w", err)
	}

	cat, err := loadCatalog(ctx, cfg.PlansFile)
	if err != nil {
		return fmt.Errorf("load plan catalog: %w", err)
	}

	usage := entitlement.NewUsageStore(docs)
	subStore := billing.NewStore(docs)

	managerOpts := []billing.ManagerOption{
		billing.WithLogger(log),
		billing.WithDeduper(billing.NewRedisDeduper(redisClient, cfg.WebhookDedupTTL)),
	}
	if cfg.BillingEnabled {
		var paddleCfg billing.PaddleConfig
		config.MustLoad(&paddleCfg)
		provider, err := billing.NewPaddleProvider(paddleCfg)
		if err != nil {
			return fmt.Errorf("create paddle provider: %w", err)
		}
		managerOpts = append(managerOpts, billing.WithProvider(provider, priceTable(cfg)))
	}
	if notifier := buildNotifier(cfg, log); notifier != nil {
		managerOpts = append(managerOpts, billing.WithNotifier(notifier))
	}
	manager := billing.NewManager(cat, subStore, managerOpts...)

	resolver := func(ctx context.Context, userID string) (catalog.PlanID, error) {
		sub, err := subStore.GetActive(ctx, userID)
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return "", entitlement.ErrNoActivePlan
		}
		if err != nil {
			return "", err
		}
		return sub.PlanID, nil
	}

	engine := entitlement.NewEngine(cat, usage, resolver)
	recorder := entitlement.NewRecorder(usage)

	var generator aiclient.Generator
	if cfg.AIEnabled {
		var aiCfg aiclient.Config
		config.MustLoad(&aiCfg)
		generator, err = aiclient.New(aiCfg, aiclient.WithClientLogger(log))
		if err != nil {
			return fmt.Errorf("create ai client: %w", err)
		}
	}

	router := api.Router(api.Options{
		Catalog:        cat,
		Engine:         engine,
		Recorder:       recorder,
		Usage:          usage,
		Manager:        manager,
		Generator:      generator,
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		ReadyChecks: []func(context.Context) error{
			func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
			func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)
	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server listening", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, router)
	})
	g.Go(func() error {
		return sweepLoop(ctx, manager, log, cfg.SweepInterval)
	})

	return g.Wait()
}

func loadCatalog(ctx context.Context, plansFile string) (*catalog.Catalog, error) {
	src := catalog.NewInMemSource(catalog.DefaultPlans())
	if plansFile != "" {
		src = catalog.NewFileSource(plansFile)
	}
	return catalog.New(ctx, src)
}

func priceTable(cfg appConfig) []billing.Price {
	var prices []billing.Price
	add := func(priceID string, planID catalog.PlanID, cycle billing.Cycle) {
		if priceID != "" {
			prices = append(prices, billing.Price{PriceID: priceID, PlanID: planID, Cycle: cycle})
		}
	}
	add(cfg.PriceProMonthly, catalog.PlanPro, billing.CycleMonthly)
	add(cfg.PriceProAnnual, catalog.PlanPro, billing.CycleAnnual)
	add(cfg.PriceEnterpriseMonthly, catalog.PlanEnterprise, billing.CycleMonthly)
	add(cfg.PriceEnterpriseAnnual, catalog.PlanEnterprise, billing.CycleAnnual)
	return prices
}

func buildNotifier(cfg appConfig, log *slog.Logger) billing.Notifier {
	if cfg.EmailUserDomain == "" {
		return nil
	}

	var sender email.EmailSender
	if cfg.EmailEnabled {
		var emailCfg email.Config
		config.MustLoad(&emailCfg)
		sender = email.MustNewPostmarkClient(emailCfg)
	} else {
		sender = email.NewDevSender(cfg.EmailDevDir)
		log.Info("email sending disabled, writing emails to disk",
			slog.String("dir", cfg.EmailDevDir))
	}

	resolve := func(ctx context.Context, userID string) (string, error) {
		return userID + "@" + cfg.EmailUserDomain, nil
	}
	return email.NewNotifications(sender, resolve)
}

func sweepLoop(ctx context.Context, manager *billing.Manager, log *slog.Logger, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			expired, err := manager.ExpireSweep(ctx)
			if err != nil {
				log.ErrorContext(ctx, "expire sweep failed", slog.Any("error", err))
				continue
			}
			if len(expired) > 0 {
				log.InfoContext(ctx, "expire sweep completed", slog.Int("expired", len(expired)))
			}
		}
	}
}
