package controllers

import (
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/pkg/ctx"
)

type CatalogController struct {
	catalog  *services.CatalogService
	reviews  *services.ReviewService
	settings *services.SettingsService
}

func NewCatalogController(catalog *services.CatalogService, reviews *services.ReviewService, settings *services.SettingsService) *CatalogController {
	return &CatalogController{catalog: catalog, reviews: reviews, settings: settings}
}

type productIDInput struct {
	ProductID uint `json:"productId" validate:"required,gte=1"`
}

func (h *CatalogController) ListProducts(c *ctx.Context) {
	c.Success(h.catalog.List(c.Context()))
}

// GetProduct answers null for a missing or inactive product.
func (h *CatalogController) GetProduct(c *ctx.Context) {
	var in idInput
	if !c.BindQuery(&in) {
		return
	}
	p, err := h.catalog.Get(c.Context(), in.ID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *CatalogController) SubmitReview(c *ctx.Context) {
	var in services.ReviewInput
	if !c.BindJSON(&in) {
		return
	}
	if uid := c.UserID(); uid != 0 {
		in.UserID = &uid
	}
	if _, err := h.reviews.Submit(c.Context(), in); err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]interface{}{"success": true, "message": "Review submitted for moderation"})
}

func (h *CatalogController) ProductReviews(c *ctx.Context) {
	var in productIDInput
	if !c.BindQuery(&in) {
		return
	}
	reviews, err := h.reviews.ListForProduct(c.Context(), in.ProductID, true)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(reviews)
}

func (h *CatalogController) ProductRating(c *ctx.Context) {
	var in productIDInput
	if !c.BindQuery(&in) {
		return
	}
	c.Success(h.reviews.AverageRating(c.Context(), in.ProductID))
}

func (h *CatalogController) ContactSettings(c *ctx.Context) {
	s, err := h.settings.Contact(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(s)
}
