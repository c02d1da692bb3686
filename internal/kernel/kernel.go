// Package kernel assembles the storefront HTTP application: repositories,
// services, controllers, the global middleware stack and the admin order
// feed. Collaborators with side effects outside the process (database,
// payments, LLM, storage, identity provider) are passed in, so tests can
// build a kernel on an in-memory store with fakes.
package kernel

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/controllers"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/app/routes"
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/config"
	"github.com/humanebio/storefront/pkg/event"
	"github.com/humanebio/storefront/pkg/llm"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/metrics"
	"github.com/humanebio/storefront/pkg/middleware"
	"github.com/humanebio/storefront/pkg/oauth"
	"github.com/humanebio/storefront/pkg/payment"
	"github.com/humanebio/storefront/pkg/reqid"
	"github.com/humanebio/storefront/pkg/response"
	"github.com/humanebio/storefront/pkg/router"
	"github.com/humanebio/storefront/pkg/storage"
	"github.com/humanebio/storefront/pkg/ws"
)

// Deps are the kernel's external collaborators.
type Deps struct {
	DB       *gorm.DB
	Disk     storage.Disk
	Payments payment.Provider
	LLM      llm.Provider
	IdP      oauth.Provider

	// Limits backs both the global and the per-procedure rate limits. Nil
	// disables rate limiting.
	Limits middleware.LimitStore

	// Hub receives order events for the admin feed. Nil disables the feed.
	Hub *ws.Hub
}

// Kernel is the assembled application.
type Kernel struct {
	router *router.Router
	events *event.Bus
}

// feedMessage is what the admin order feed pushes for each order event.
type feedMessage struct {
	Event string      `json:"event"`
	Order interface{} `json:"order"`
}

func New(d Deps) *Kernel {
	events := event.New()

	users := repositories.NewUserRepository(d.DB)
	products := repositories.NewProductRepository(d.DB)
	cartRepo := repositories.NewCartRepository(d.DB)
	orderRepo := repositories.NewOrderRepository(d.DB)
	reviewRepo := repositories.NewReviewRepository(d.DB)
	chatRepo := repositories.NewChatRepository(d.DB)
	settingRepo := repositories.NewSettingRepository(d.DB)
	newsletterRepo := repositories.NewNewsletterRepository(d.DB)

	authSvc := services.NewAuthService(users, d.IdP, config.OwnerOpenID())
	cartSvc := services.NewCartService(cartRepo, products)
	orderSvc := services.NewOrderService(orderRepo, events)
	checkoutSvc := services.NewCheckoutService(cartRepo, products, users, orderSvc, d.Payments, config.AppURL())
	catalogSvc := services.NewCatalogService(products, d.Disk)
	reviewSvc := services.NewReviewService(reviewRepo, products)
	chatSvc := services.NewChatService(chatRepo, settingRepo, d.LLM)
	settingsSvc := services.NewSettingsService(settingRepo)
	newsletterSvc := services.NewNewsletterService(newsletterRepo)

	secure := config.IsProduction()
	h := routes.Handlers{
		Auth:     controllers.NewAuthController(authSvc, config.SessionCookie(), config.AppURL(), secure),
		Cart:     controllers.NewCartController(cartSvc),
		Checkout: controllers.NewCheckoutController(checkoutSvc, orderSvc),
		Catalog:  controllers.NewCatalogController(catalogSvc, reviewSvc, settingsSvc),
		Chat:     controllers.NewChatController(chatSvc, newsletterSvc),
		Admin:    controllers.NewAdminController(catalogSvc, orderSvc, reviewSvc, chatSvc, settingsSvc),
		Limits:   d.Limits,
	}

	if d.Hub != nil {
		bridgeOrders(events, d.Hub)
		h.OrderFeed = orderFeed(d.Hub)
	}

	r := router.New()

	// Global middleware stack (outermost → innermost):
	//  1. Prometheus metrics
	//  2. Recovery
	//  3. Request ID
	//  4. Logger
	//  5. CORS
	//  6. Rate limiter
	//  7. Authenticate (identity reloaded from the users table)
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions(config.AppURL())))
	if d.Limits != nil {
		r.Use(middleware.RateLimit(d.Limits, "api", config.RateLimitPerMinute(), time.Minute))
	}
	r.Use(middleware.Authenticate(config.SessionCookie(), authSvc.Lookup))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.Handle("/metrics", "metrics", metrics.Handler())
	if local, ok := d.Disk.(*storage.Local); ok {
		r.Handle("/storage/*", "storage", http.StripPrefix("/storage", local.Handler()))
	}

	routes.RegisterAPI(r, h)

	return &Kernel{router: r, events: events}
}

// Handler is the root http.Handler.
func (k *Kernel) Handler() http.Handler { return k.router.Handler() }

// Router exposes the named routes, e.g. for route:list.
func (k *Kernel) Router() *router.Router { return k.router }

// Events is the bus order events are published on.
func (k *Kernel) Events() *event.Bus { return k.events }

// bridgeOrders pushes every order event to the admin feed.
func bridgeOrders(events *event.Bus, hub *ws.Hub) {
	forward := func(name string) event.Handler {
		return func(ctx context.Context, payload interface{}) {
			msg, err := json.Marshal(feedMessage{Event: name, Order: payload})
			if err != nil {
				logger.WithCtx(ctx).Error("order feed: encode failed", "event", name, "error", err)
				return
			}
			hub.Broadcast(msg)
		}
	}
	events.Listen(services.EventOrderCreated, forward(services.EventOrderCreated))
	events.Listen(services.EventOrderStatusUpdated, forward(services.EventOrderStatusUpdated))
}

func orderFeed(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ws.Upgrade(w, r, hub); err != nil {
			logger.WithCtx(r.Context()).Warn("order feed: upgrade failed", "error", err)
		}
	}
}
