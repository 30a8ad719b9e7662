package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kledje/storefront-backend/api/controllers"
	"github.com/kledje/storefront-backend/api/routes"
	"github.com/kledje/storefront-backend/internal/auth"
	"github.com/kledje/storefront-backend/internal/cart"
	"github.com/kledje/storefront-backend/internal/checkout"
	"github.com/kledje/storefront-backend/internal/identity"
	"github.com/kledje/storefront-backend/internal/orders"
	"github.com/kledje/storefront-backend/internal/products"
	"github.com/kledje/storefront-backend/internal/users"
	"github.com/kledje/storefront-backend/pkg/auth/session"
	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/db"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/metrics"
	"github.com/kledje/storefront-backend/pkg/migrate"
	"github.com/kledje/storefront-backend/pkg/outbox"
	"github.com/kledje/storefront-backend/pkg/redis"
)

var version = "dev"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(reg)
	orderMetrics := metrics.NewOrderMetrics(reg)

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:        cartRepo,
		Products:    productRepo,
		Tx:          dbClient,
		Outbox:      emitter,
		Metrics:     orderMetrics,
		Logger:      logg,
		MaxQuantity: cfg.Cart.MaxQuantity,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:      dbClient,
		Carts:   cartRepo,
		Orders:  ordersRepo,
		Outbox:  emitter,
		Metrics: orderMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   emitter,
		Products: productRepo,
		Users:    userRepo,
		Metrics:  orderMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	hub := identity.NewHub()
	if cfg.Cart.MergeOnLogin {
		hub.Subscribe(identity.MergeOnSignIn(cartService, logg))
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Events:         hub,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	readiness, err := controllers.NewReadinessCheck(version, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create readiness checks", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"version": version,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			sessionManager,
			redisClient,
			httpMetrics,
			reg,
			routes.Services{
				Auth:     authService,
				Products: productService,
				Cart:     cartService,
				Checkout: checkoutService,
				Orders:   ordersService,
			},
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.App.RequestTimeout,
		WriteTimeout:      cfg.App.RequestTimeout + 5*time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
