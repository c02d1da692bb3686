package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/pkg/ctx"
)

// AdminController serves the admin.* procedures. Every route it backs sits
// behind rbac.RequireAdmin.
type AdminController struct {
	catalog  *services.CatalogService
	orders   *services.OrderService
	reviews  *services.ReviewService
	chat     *services.ChatService
	settings *services.SettingsService
}

func NewAdminController(
	catalog *services.CatalogService,
	orders *services.OrderService,
	reviews *services.ReviewService,
	chat *services.ChatService,
	settings *services.SettingsService,
) *AdminController {
	return &AdminController{catalog: catalog, orders: orders, reviews: reviews, chat: chat, settings: settings}
}

type updatePriceInput struct {
	ID    uint  `json:"id" validate:"required,gte=1"`
	Price int64 `json:"price" validate:"required,gte=1"`
}

type updateOrderStatusInput struct {
	OrderID uint   `json:"orderId" validate:"required,gte=1"`
	Status  string `json:"status" validate:"required,in=pending,paid,shipped,delivered,cancelled"`
}

type approveReviewInput struct {
	ReviewID uint `json:"reviewId" validate:"required,gte=1"`
	Approved bool `json:"approved"`
}

type reviewIDInput struct {
	ReviewID uint `json:"reviewId" validate:"required,gte=1"`
}

type historyInput struct {
	Limit int `json:"limit" validate:"nullable,between=1,500"`
}

// ─── Products ─────────────────────────────────────────────────────────────────

func (h *AdminController) GetProducts(c *ctx.Context) {
	products, err := h.catalog.ListAll(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(products)
}

func (h *AdminController) CreateProduct(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.catalog.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *AdminController) UpdateProduct(c *ctx.Context) {
	var in services.ProductUpdate
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.catalog.Update(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

func (h *AdminController) UpdateProductPrice(c *ctx.Context) {
	var in updatePriceInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := h.catalog.UpdatePrice(c.Context(), in.ID, in.Price)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(p)
}

// UploadProductImage takes a multipart form with a productId field and an
// image file part.
func (h *AdminController) UploadProductImage(c *ctx.Context) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, services.MaxImageBytes+(1<<20))
	if err := c.R.ParseMultipartForm(services.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(http.StatusRequestEntityTooLarge, "Image must be 5MB or smaller")
			return
		}
		c.Error(http.StatusBadRequest, "Expected a multipart form")
		return
	}
	defer c.R.MultipartForm.RemoveAll() //nolint:errcheck

	id, err := strconv.ParseUint(c.R.FormValue("productId"), 10, 64)
	if err != nil || id == 0 {
		c.Error(http.StatusBadRequest, "The productId field is required.")
		return
	}
	file, _, err := c.R.FormFile("image")
	if err != nil {
		c.Error(http.StatusBadRequest, "The image field is required.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxImageBytes+1))
	if err != nil {
		c.Error(http.StatusBadRequest, "Could not read image")
		return
	}
	res, err := h.catalog.UploadImage(c.Context(), uint(id), data)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

// ─── Orders ───────────────────────────────────────────────────────────────────

func (h *AdminController) GetOrders(c *ctx.Context) {
	orders, err := h.orders.ListAll(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(orders)
}

func (h *AdminController) UpdateOrderStatus(c *ctx.Context) {
	var in updateOrderStatusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.orders.UpdateStatus(c.Context(), in.OrderID, models.OrderStatus(in.Status))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(order)
}

// ─── Reviews ──────────────────────────────────────────────────────────────────

func (h *AdminController) GetPendingReviews(c *ctx.Context) {
	reviews, err := h.reviews.ListPending(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(reviews)
}

// GetProductReviews lists every review of a product, pending included.
func (h *AdminController) GetProductReviews(c *ctx.Context) {
	var in productIDInput
	if !c.BindQuery(&in) {
		return
	}
	reviews, err := h.reviews.ListForProduct(c.Context(), in.ProductID, false)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(reviews)
}

func (h *AdminController) ApproveReview(c *ctx.Context) {
	var in approveReviewInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.reviews.SetApproval(c.Context(), in.ReviewID, in.Approved); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}

func (h *AdminController) DeleteReview(c *ctx.Context) {
	var in reviewIDInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.reviews.Delete(c.Context(), in.ReviewID); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}

// ─── Chat and settings ────────────────────────────────────────────────────────

func (h *AdminController) GetChatHistory(c *ctx.Context) {
	var in historyInput
	if !c.BindQuery(&in) {
		return
	}
	msgs, err := h.chat.History(c.Context(), in.Limit)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(msgs)
}

func (h *AdminController) GetLLMSettings(c *ctx.Context) {
	s, err := h.settings.LLM(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(s)
}

func (h *AdminController) UpdateLLMSettings(c *ctx.Context) {
	var in services.LLMSettingsPatch
	if !c.BindJSON(&in) {
		return
	}
	s, err := h.settings.UpdateLLM(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(s)
}

func (h *AdminController) GetContactSettings(c *ctx.Context) {
	s, err := h.settings.Contact(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(s)
}

func (h *AdminController) UpdateContactSettings(c *ctx.Context) {
	var in services.ContactSettingsPatch
	if !c.BindJSON(&in) {
		return
	}
	s, err := h.settings.UpdateContact(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(s)
}
