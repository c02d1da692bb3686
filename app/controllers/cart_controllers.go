package controllers

import (
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/pkg/ctx"
)

type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

type addItemInput struct {
	ProductID uint `json:"productId" validate:"required,gte=1"`
	Quantity  int  `json:"quantity" validate:"required,gte=1"`
}

type updateItemInput struct {
	CartID   uint `json:"cartId" validate:"required,gte=1"`
	Quantity int  `json:"quantity"`
}

type cartIDInput struct {
	CartID uint `json:"cartId" validate:"required,gte=1"`
}

var ok = map[string]bool{"success": true}

func (h *CartController) GetItems(c *ctx.Context) {
	items, err := h.cart.GetItems(c.Context(), c.UserID())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(items)
}

func (h *CartController) AddItem(c *ctx.Context) {
	var in addItemInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.cart.AddItem(c.Context(), c.UserID(), in.ProductID, in.Quantity); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}

// UpdateItem sets a line's quantity. Zero or less removes the line.
func (h *CartController) UpdateItem(c *ctx.Context) {
	var in updateItemInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.cart.UpdateItem(c.Context(), c.UserID(), in.CartID, in.Quantity); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}

func (h *CartController) RemoveItem(c *ctx.Context) {
	var in cartIDInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.cart.RemoveItem(c.Context(), c.UserID(), in.CartID); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}

func (h *CartController) Clear(c *ctx.Context) {
	if err := h.cart.Clear(c.Context(), c.UserID()); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}
