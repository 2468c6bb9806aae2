package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bakehouse-backend/api/controllers"
	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
)

// Sessions is what the router needs from the session registry.
type Sessions interface {
	controllers.SessionProvider
	controllers.Reconciler
}

// Deps wires the router to the running services.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    Sessions
	Inventory   controllers.InventoryReplacer
	Store       storage.Store
	HTTPMetrics *metrics.HTTPMetrics
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Ready lists the backends pinged by /health/ready.
	Ready map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", controllers.SessionCreate(cfg.Session, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionToken(cfg.Session, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Sessions, logg))
				r.Delete("/", controllers.CartClear(deps.Sessions, logg))
				r.Post("/items", controllers.CartAddItem(deps.Sessions, logg))
				r.Patch("/items/{itemID}", controllers.CartSetQuantity(deps.Sessions, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Sessions, logg))
				r.Post("/items/{itemID}/increment", controllers.CartIncrement(deps.Sessions, logg))
				r.Post("/items/{itemID}/decrement", controllers.CartDecrement(deps.Sessions, logg))
				r.Post("/items/{itemID}/save", controllers.CartSaveForLater(deps.Sessions, logg))
				r.Post("/saved/{itemID}/restore", controllers.CartRestoreSaved(deps.Sessions, logg))
				r.Delete("/saved/{itemID}", controllers.CartRemoveSaved(deps.Sessions, logg))
				r.Post("/promotion", controllers.CartApplyPromotion(deps.Sessions, logg))
				r.Delete("/promotion", controllers.CartRemovePromotion(deps.Sessions, logg))
				r.Put("/notes", controllers.CartSetNotes(deps.Sessions, logg))
				r.Put("/gift", controllers.CartSetGiftOptions(deps.Sessions, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/shipping-options", controllers.CheckoutShippingOptions(deps.Sessions, logg))
				r.Put("/shipping", controllers.CheckoutSelectShipping(deps.Sessions, logg))
				r.Post("/validate", controllers.CheckoutValidate(deps.Sessions, logg))
				r.With(middleware.Idempotency(deps.Store, cfg.Store.Namespace, logg)).
					Post("/submit", controllers.CheckoutSubmit(deps.Sessions, logg))
				r.Post("/reset", controllers.CheckoutReset(deps.Sessions, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(deps.Sessions, logg))
				r.Get("/last", controllers.OrdersLast(deps.Sessions, logg))
				r.Get("/{orderID}", controllers.OrdersGet(deps.Sessions, logg))
			})
		})

		if cfg.App.AdminToken != "" && deps.Inventory != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminToken(cfg.App.AdminToken, logg))
				r.Get("/inventory", controllers.AdminInventoryGet(deps.Inventory, logg))
				r.Put("/inventory", controllers.AdminInventoryReplace(deps.Inventory, deps.Sessions, logg))
			})
		}
	})

	return r
}
