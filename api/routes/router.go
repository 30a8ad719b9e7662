package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hellofresh/health-go/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kledje/storefront-backend/api/controllers"
	"github.com/kledje/storefront-backend/api/middleware"
	"github.com/kledje/storefront-backend/internal/auth"
	"github.com/kledje/storefront-backend/internal/cart"
	"github.com/kledje/storefront-backend/internal/checkout"
	"github.com/kledje/storefront-backend/internal/orders"
	"github.com/kledje/storefront-backend/internal/products"
	"github.com/kledje/storefront-backend/pkg/auth/session"
	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/enums"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/metrics"
)

// requestStore backs rate limiting and idempotency. *redis.Client satisfies it.
type requestStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Services groups the domain services mounted by the router.
type Services struct {
	Auth     auth.Service
	Products products.Service
	Cart     cart.Service
	Checkout checkout.Service
	Orders   orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness *health.Health,
	sessionChecker session.AccessSessionChecker,
	store requestStore,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins, cfg.Session.HeaderName),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		if readiness != nil {
			r.Get("/ready", controllers.HealthReady(cfg, readiness))
		}
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svc.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(svc.Products, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.CartSession(cfg.Session, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, store, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		// Guests and signed-in users share the cart and checkout surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessionChecker, logg))
			r.Use(middleware.CartSession(cfg.Session, logg))
			r.Use(middleware.ResolveOwner(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Get("/count", controllers.CartCount(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
				r.With(
					middleware.Auth(cfg.JWT, sessionChecker, logg),
					middleware.Idempotency(store, logg),
				).Post("/merge", controllers.CartMerge(svc.Cart, logg))
			})

			r.With(middleware.Idempotency(store, logg)).Post("/checkout", controllers.CheckoutPlaceOrder(svc.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Use(middleware.CartSession(cfg.Session, logg))
			r.Use(middleware.ResolveOwner(logg))
			r.Get("/", controllers.OrderHistory(svc.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Use(middleware.ResolveOwner(logg))
			r.Get("/dashboard", controllers.AdminDashboard(svc.Orders, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(svc.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(svc.Orders, logg))
				r.With(middleware.Idempotency(store, logg)).Patch("/{orderId}/status", controllers.AdminOrderStatus(svc.Orders, logg))
			})
		})
	})

	return r
}
