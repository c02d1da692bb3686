// Package routes registers every API procedure on the router. Procedure
// names ("cart.addItem") double as route names for `storefront route:list`.
package routes

import (
	"net/http"
	"time"

	"github.com/humanebio/storefront/app/controllers"
	"github.com/humanebio/storefront/pkg/ctx"
	"github.com/humanebio/storefront/pkg/middleware"
	"github.com/humanebio/storefront/pkg/rbac"
	"github.com/humanebio/storefront/pkg/router"
)

// Handlers is everything RegisterAPI mounts. Limits may be nil, which turns
// off the per-procedure throttles; OrderFeed may be nil to skip the admin
// websocket.
type Handlers struct {
	Auth     *controllers.AuthController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Catalog  *controllers.CatalogController
	Chat     *controllers.ChatController
	Admin    *controllers.AdminController

	OrderFeed http.HandlerFunc
	Limits    middleware.LimitStore
}

// Per-IP limits for the procedures that reach paid or abusable backends.
const (
	chatPerMinute       = 20
	newsletterPerMinute = 5
)

func RegisterAPI(r *router.Router, h Handlers) {
	throttle := func(scope string, max int) []router.Middleware {
		if h.Limits == nil {
			return nil
		}
		return []router.Middleware{middleware.RateLimit(h.Limits, scope, max, time.Minute)}
	}

	api := r.Group("/api")

	// Public
	api.Get("/auth/me", "auth.me", ctx.Wrap(h.Auth.Me))
	api.Post("/auth/logout", "auth.logout", ctx.Wrap(h.Auth.Logout))
	api.Get("/oauth/callback", "auth.callback", ctx.Wrap(h.Auth.Callback))

	api.Get("/products/list", "products.list", ctx.Wrap(h.Catalog.ListProducts))
	api.Get("/products/getById", "products.getById", ctx.Wrap(h.Catalog.GetProduct))

	api.Post("/reviews/submitReview", "reviews.submitReview", ctx.Wrap(h.Catalog.SubmitReview))
	api.Get("/reviews/getProductReviews", "reviews.getProductReviews", ctx.Wrap(h.Catalog.ProductReviews))
	api.Get("/reviews/getProductRating", "reviews.getProductRating", ctx.Wrap(h.Catalog.ProductRating))

	api.Get("/contact/getSettings", "contact.getSettings", ctx.Wrap(h.Catalog.ContactSettings))

	api.Post("/chat/sendMessage", "chat.sendMessage", ctx.Wrap(h.Chat.SendMessage), throttle("chat", chatPerMinute)...)
	api.Post("/newsletter/subscribe", "newsletter.subscribe", ctx.Wrap(h.Chat.Subscribe), throttle("newsletter", newsletterPerMinute)...)

	// Signed-in users
	user := api.Group("", middleware.RequireAuth)

	user.Get("/cart/getItems", "cart.getItems", ctx.Wrap(h.Cart.GetItems))
	user.Post("/cart/addItem", "cart.addItem", ctx.Wrap(h.Cart.AddItem))
	user.Post("/cart/updateItem", "cart.updateItem", ctx.Wrap(h.Cart.UpdateItem))
	user.Post("/cart/removeItem", "cart.removeItem", ctx.Wrap(h.Cart.RemoveItem))
	user.Post("/cart/clear", "cart.clear", ctx.Wrap(h.Cart.Clear))

	user.Post("/checkout/createSession", "checkout.createSession", ctx.Wrap(h.Checkout.CreateSession))
	user.Post("/checkout/confirm", "checkout.confirm", ctx.Wrap(h.Checkout.Confirm))

	user.Get("/orders/list", "orders.list", ctx.Wrap(h.Checkout.ListOrders))
	user.Get("/orders/getById", "orders.getById", ctx.Wrap(h.Checkout.GetOrder))

	// Admins
	admin := api.Group("/admin", rbac.RequireAdmin)

	admin.Get("/getProducts", "admin.getProducts", ctx.Wrap(h.Admin.GetProducts))
	admin.Post("/createProduct", "admin.createProduct", ctx.Wrap(h.Admin.CreateProduct))
	admin.Post("/updateProduct", "admin.updateProduct", ctx.Wrap(h.Admin.UpdateProduct))
	admin.Post("/updateProductPrice", "admin.updateProductPrice", ctx.Wrap(h.Admin.UpdateProductPrice))
	admin.Post("/uploadProductImage", "admin.uploadProductImage", ctx.Wrap(h.Admin.UploadProductImage))

	admin.Get("/getOrders", "admin.getOrders", ctx.Wrap(h.Admin.GetOrders))
	admin.Post("/updateOrderStatus", "admin.updateOrderStatus", ctx.Wrap(h.Admin.UpdateOrderStatus))

	admin.Get("/getPendingReviews", "admin.getPendingReviews", ctx.Wrap(h.Admin.GetPendingReviews))
	admin.Get("/getProductReviews", "admin.getProductReviews", ctx.Wrap(h.Admin.GetProductReviews))
	admin.Post("/approveReview", "admin.approveReview", ctx.Wrap(h.Admin.ApproveReview))
	admin.Post("/deleteReview", "admin.deleteReview", ctx.Wrap(h.Admin.DeleteReview))

	admin.Get("/getChatHistory", "admin.getChatHistory", ctx.Wrap(h.Admin.GetChatHistory))
	admin.Get("/getLLMSettings", "admin.getLLMSettings", ctx.Wrap(h.Admin.GetLLMSettings))
	admin.Post("/updateLLMSettings", "admin.updateLLMSettings", ctx.Wrap(h.Admin.UpdateLLMSettings))
	admin.Get("/getContactSettings", "admin.getContactSettings", ctx.Wrap(h.Admin.GetContactSettings))
	admin.Post("/updateContactSettings", "admin.updateContactSettings", ctx.Wrap(h.Admin.UpdateContactSettings))

	if h.OrderFeed != nil {
		admin.Get("/orders/feed", "admin.ordersFeed", h.OrderFeed)
	}
}
