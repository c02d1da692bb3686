package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/storage"
)

// MaxImageBytes is the upload limit for product images.
const MaxImageBytes = 5 << 20

// imageTypes maps accepted sniffed MIME types to the stored extension.
var imageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ProductInput is an admin create request.
type ProductInput struct {
	Name            string   `json:"name" validate:"required,max=255"`
	Category        string   `json:"category" validate:"required,in=nootropic,peptide"`
	Description     string   `json:"description" validate:"nullable,max=10000"`
	Image           string   `json:"image" validate:"nullable,url"`
	Price           int64    `json:"price" validate:"required,gte=1"`
	ScientificLinks []string `json:"scientificLinks" validate:"nullable,urls"`
	Active          *bool    `json:"active"`
}

// ProductUpdate is an admin partial update; nil fields stay unchanged.
type ProductUpdate struct {
	ID              uint      `json:"id" validate:"required,gte=1"`
	Name            *string   `json:"name" validate:"nullable,max=255"`
	Category        *string   `json:"category" validate:"nullable,in=nootropic,peptide"`
	Description     *string   `json:"description" validate:"nullable,max=10000"`
	Image           *string   `json:"image" validate:"nullable,url"`
	Price           *int64    `json:"price" validate:"nullable,gte=1"`
	ScientificLinks *[]string `json:"scientificLinks" validate:"nullable,urls"`
	Active          *bool     `json:"active"`
}

// UploadResult is where an uploaded image was stored.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type CatalogService struct {
	products *repositories.ProductRepository
	disk     storage.Disk
}

func NewCatalogService(products *repositories.ProductRepository, disk storage.Disk) *CatalogService {
	return &CatalogService{products: products, disk: disk}
}

// List returns the active catalogue. A store failure yields an empty list.
func (s *CatalogService) List(ctx context.Context) []models.Product {
	products, err := s.products.ListActive(ctx)
	if err != nil {
		logger.WithCtx(ctx).Warn("catalog: list degraded to empty", "error", err)
		return []models.Product{}
	}
	return products
}

// Get returns an active product, or nil when there is none with that id.
func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, nil
	}
	return p, nil
}

// ListAll returns every product, inactive included.
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.products.ListAll(ctx)
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	cat := models.Category(in.Category)
	if !cat.Valid() {
		return nil, apperr.New(apperr.BadRequest, "products.create", "Invalid category")
	}
	if in.Price < 1 {
		return nil, apperr.New(apperr.BadRequest, "products.create", "Price must be positive")
	}
	p := &models.Product{
		Name:            in.Name,
		Category:        cat,
		Description:     in.Description,
		Image:           in.Image,
		Price:           in.Price,
		ScientificLinks: models.StringList(in.ScientificLinks),
		Active:          in.Active == nil || *in.Active,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("product created", "product_id", p.ID)
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, in ProductUpdate) (*models.Product, error) {
	patch := models.ProductPatch{
		Name:            in.Name,
		Description:     in.Description,
		Image:           in.Image,
		Price:           in.Price,
		ScientificLinks: in.ScientificLinks,
		Active:          in.Active,
	}
	if in.Category != nil {
		cat := models.Category(*in.Category)
		if !cat.Valid() {
			return nil, apperr.New(apperr.BadRequest, "products.update", "Invalid category")
		}
		patch.Category = &cat
	}
	if in.Price != nil && *in.Price < 1 {
		return nil, apperr.New(apperr.BadRequest, "products.update", "Price must be positive")
	}
	return s.products.Update(ctx, in.ID, patch)
}

// UpdatePrice sets the unit price in cents.
func (s *CatalogService) UpdatePrice(ctx context.Context, id uint, price int64) (*models.Product, error) {
	return s.Update(ctx, ProductUpdate{ID: id, Price: &price})
}

// UploadImage checks size and content type, stores the image under
// products/product-<id>-<uuid>.<ext> and points the product at it.
func (s *CatalogService) UploadImage(ctx context.Context, productID uint, data []byte) (*UploadResult, error) {
	const op = "products.uploadImage"
	if len(data) == 0 {
		return nil, apperr.New(apperr.BadRequest, op, "Image is empty")
	}
	if len(data) > MaxImageBytes {
		return nil, apperr.New(apperr.BadRequest, op, "Image must be 5MB or smaller")
	}
	mime := sniffImage(data)
	ext, ok := imageTypes[mime]
	if !ok {
		return nil, apperr.New(apperr.BadRequest, op, "Image must be JPEG, PNG, WebP or GIF")
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	key := path.Join("products", fmt.Sprintf("product-%d-%s.%s", productID, uuid.NewString(), ext))
	url, err := s.disk.Put(ctx, key, data, mime)
	if err != nil {
		logger.WithCtx(ctx).Error("product image upload failed", "product_id", productID, "error", err)
		return nil, apperr.Wrapf(apperr.StorageProvider, op, err, "Failed to upload image")
	}

	if _, err := s.products.Update(ctx, productID, models.ProductPatch{Image: &url}); err != nil {
		return nil, err
	}
	return &UploadResult{URL: url, Key: key}, nil
}

// sniffImage returns the MIME type detected from data's leading bytes.
func sniffImage(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}
