package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/storekit/storekit/modules/api"
	"github.com/storekit/storekit/pkg/config"
	"github.com/storekit/storekit/pkg/httpserver"
	"github.com/storekit/storekit/pkg/logger"
	"github.com/storekit/storekit/pkg/pg"
	"github.com/storekit/storekit/pkg/redis"
	"github.com/storekit/storekit/svc/billing"
	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/notifications"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/tenant"
	"github.com/storekit/storekit/svc/usage"
)

type appConfig struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	TenantHeader string `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
	DomainSuffix string `env:"TENANT_DOMAIN_SUFFIX"`

	// PlansFile overrides the built-in plan catalog with a YAML file.
	PlansFile string `env:"PLANS_FILE"`

	BillingEnabled bool          `env:"BILLING_ENABLED" envDefault:"false"`
	UsageCacheTTL  time.Duration `env:"USAGE_CACHE_TTL" envDefault:"30s"`
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	config.MustLoad(&cfg)
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "storekit"),
		logger.WithExtractor(tenant.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, pgCfg, redisCfg, log); err != nil {
		log.ErrorContext(ctx, "server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, pgCfg pg.Config, redisCfg redis.Config, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	subStore := subscription.NewPgStore(pool)

	catalog := plans.NewCatalog(plans.NewPgStore(pool),
		plans.WithLogger(log),
		plans.WithRefCounter(func(ctx context.Context, planID string) (int64, error) {
			return subStore.CountByPlan(ctx, planID)
		}))
	if cfg.PlansFile != "" {
		if err := catalog.Seed(ctx, plans.NewYAMLSource(cfg.PlansFile)); err != nil {
			return err
		}
	} else if err := catalog.SeedDefaults(ctx); err != nil {
		return err
	}

	notifSvc := notifications.NewService(notifications.NewPgStorage(pool),
		notifications.WithLogger(log))

	subOpts := []subscription.Option{
		subscription.WithLogger(log),
		subscription.WithNotifier(notifSvc.Notify),
	}
	var provider billing.Provider
	if cfg.BillingEnabled {
		var paddleCfg billing.PaddleConfig
		config.MustLoad(&paddleCfg)
		paddle, err := billing.NewPaddleProvider(paddleCfg)
		if err != nil {
			return err
		}
		provider = paddle
		subOpts = append(subOpts, subscription.WithBilling(provider))
	}
	subSvc := subscription.NewService(subStore, catalog, subOpts...)

	usageSvc := usage.NewService(usage.NewPgStore(pool),
		usage.WithLogger(log),
		usage.WithCache(usage.NewCache(redisClient, cfg.UsageCacheTTL)))

	engine := entitlement.NewEngine(subSvc, usageSvc, catalog,
		entitlement.WithLogger(log))

	tenantStore := tenant.NewPgStore(pool)
	resolver := tenant.NewCompositeResolver(
		tenant.NewHeaderResolver(cfg.TenantHeader),
		tenant.NewSubdomainResolver(cfg.DomainSuffix),
	)

	apiOpts := []api.Option{
		api.WithLogger(log),
		api.WithNotifications(notifSvc),
	}
	if provider != nil {
		apiOpts = append(apiOpts, api.WithBilling(provider))
	}
	apiModule := api.New(engine, subSvc, catalog, apiOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", httpserver.HealthHandler(
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(resolver, tenantStore))
		apiModule.Routes(r)
	})

	srv := httpserver.New(
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithLogger(log),
	)
	return srv.Run(ctx, r)
}
