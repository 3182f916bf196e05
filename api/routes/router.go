package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bundlehubgh/bundlehub-backend/api/controllers"
	webhookcontrollers "github.com/bundlehubgh/bundlehub-backend/api/controllers/webhooks"
	"github.com/bundlehubgh/bundlehub-backend/api/middleware"
	"github.com/bundlehubgh/bundlehub-backend/internal/auth"
	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/internal/catalog"
	checkoutsvc "github.com/bundlehubgh/bundlehub-backend/internal/checkout"
	"github.com/bundlehubgh/bundlehub-backend/internal/orders"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	paystackwebhook "github.com/bundlehubgh/bundlehub-backend/internal/webhooks/paystack"
	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

// Deps bundles everything the router mounts. The Paystack pieces may be nil
// when the gateway is not configured; those routes then answer with a
// configuration error from the controllers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics prometheus.Gatherer

	DBPing    func(ctx context.Context) error
	RedisPing func(ctx context.Context) error

	Auth     auth.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Wallet   wallet.Service

	Payments          checkoutsvc.PaymentInitializer
	PaystackWebhooks  *paystackwebhook.Service
	PaystackSignature webhookcontrollers.SignatureVerifier
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, []controllers.ReadinessCheck{
			{Name: "database", Check: deps.DBPing},
			{Name: "redis", Check: deps.RedisPing},
		}))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		if deps.PaystackWebhooks != nil {
			r.Post("/paystack", webhookcontrollers.Paystack(deps.PaystackWebhooks, deps.PaystackSignature, logg))
		}
		r.Post("/vendor", webhookcontrollers.Vendor(deps.Orders, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/auth/me", controllers.AuthProfile(deps.Auth, logg))
		r.Get("/products", controllers.ProductList(deps.Catalog, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Post("/", controllers.CartAdd(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Delete("/{productId}", controllers.CartRemove(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Post("/checkout/single", controllers.PurchaseSingle(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(deps.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(deps.Wallet, logg))
			r.Post("/topup", controllers.WalletTopUp(deps.Payments, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.Catalog, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Catalog, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Catalog, logg))
		})
		r.Get("/orders", controllers.AdminOrderList(deps.Orders, logg))
		r.Post("/wallet/credit", controllers.AdminWalletCredit(deps.Wallet, logg))
		r.Post("/users/{userId}/promote-agent", controllers.AdminPromoteAgent(deps.Auth, logg))
	})

	return r
}
