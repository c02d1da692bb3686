package controllers

import (
	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/pkg/ctx"
)

type CheckoutController struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
}

func NewCheckoutController(checkout *services.CheckoutService, orders *services.OrderService) *CheckoutController {
	return &CheckoutController{checkout: checkout, orders: orders}
}

type createSessionInput struct {
	ShippingName    string `json:"shippingName" validate:"required,max=255"`
	ShippingEmail   string `json:"shippingEmail" validate:"required,email"`
	ShippingAddress string `json:"shippingAddress" validate:"required,max=1000"`
	ShippingCity    string `json:"shippingCity" validate:"required,max=255"`
	ShippingPostal  string `json:"shippingPostal" validate:"required,max=32"`
	ShippingCountry string `json:"shippingCountry" validate:"required,max=64"`
}

type confirmInput struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type idInput struct {
	ID uint `json:"id" validate:"required,gte=1"`
}

func (h *CheckoutController) CreateSession(c *ctx.Context) {
	var in createSessionInput
	if !c.BindJSON(&in) {
		return
	}
	var email string
	if id := c.Identity(); id != nil {
		email = id.Email
	}
	sess, err := h.checkout.CreateSession(c.Context(), services.CheckoutRequest{
		UserID: c.UserID(),
		Email:  email,
		Shipping: models.Shipping{
			Name:    in.ShippingName,
			Email:   in.ShippingEmail,
			Address: in.ShippingAddress,
			City:    in.ShippingCity,
			Postal:  in.ShippingPostal,
			Country: in.ShippingCountry,
		},
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(sess)
}

func (h *CheckoutController) Confirm(c *ctx.Context) {
	var in confirmInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.checkout.Confirm(c.Context(), c.UserID(), in.SessionID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

func (h *CheckoutController) ListOrders(c *ctx.Context) {
	orders, err := h.orders.ListForUser(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(orders)
}

func (h *CheckoutController) GetOrder(c *ctx.Context) {
	var in idInput
	if !c.BindQuery(&in) {
		return
	}
	order, err := h.orders.GetForUser(c.Context(), c.UserID(), c.Identity().IsAdmin(), in.ID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}
