package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/araliya/storefront/pkg/health"
	"github.com/araliya/storefront/pkg/middleware"

	"github.com/araliya/storefront/internal/gateway"
	"github.com/araliya/storefront/internal/service"
)

// RouterDeps carries everything the router needs to mount the storefront API.
type RouterDeps struct {
	Carts         *service.CartService
	Checkout      *service.CheckoutService
	Reconcile     *service.ReconcileService
	Orders        *gateway.OrderGateway
	HealthHandler *health.Handler
	Validate      middleware.TokenValidator
	CheckoutURL   string
	CORS          middleware.CORSConfig
	PprofCIDRs    []string
	Logger        *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.CORS(deps.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check endpoints
	r.Get("/health/live", deps.HealthHandler.LivenessHandler())
	r.Get("/health/ready", deps.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, deps.PprofCIDRs, deps.Logger)

	cartHandler := NewCartHandler(deps.Carts, deps.Logger)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.CheckoutURL, deps.Logger)
	orderHandler := NewOrderHandler(deps.Reconcile, deps.Orders, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Validate))

		r.Route("/cart", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}/{size}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}/{size}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Prepare)
			r.Post("/redirect", checkoutHandler.PrepareRedirect)
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/resolve", orderHandler.Resolve)
			r.Post("/send-email", orderHandler.SendReceipt)
			r.Get("/receipt", orderHandler.DownloadReceipt)
		})
	})

	return r
}
