package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/pkg/collection"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListActive returns the public catalogue.
func (r *ProductRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id asc").Find(&products).Error
	if err != nil {
		return nil, storeErr("products.listActive", err)
	}
	return products, nil
}

// ListAll returns every product, newest first.
func (r *ProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := r.db.WithContext(ctx).Order("created_at desc, id desc").Find(&products).Error
	if err != nil {
		return nil, storeErr("products.listAll", err)
	}
	return products, nil
}

// FindByID returns the product or a NotFound error.
func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, storeErr("products.findByID", err)
	}
	return &p, nil
}

// FindByIDs returns the products with the given ids keyed by id. Missing ids
// are simply absent from the map.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	if len(ids) == 0 {
		return map[uint]models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, storeErr("products.findByIDs", err)
	}
	return collection.KeyBy(products, func(p models.Product) uint { return p.ID }), nil
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return storeErr("products.create", r.db.WithContext(ctx).Create(p).Error)
}

// Update applies the non-nil fields of patch and returns the updated row.
func (r *ProductRepository) Update(ctx context.Context, id uint, patch models.ProductPatch) (*models.Product, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if cols := patch.Columns(); len(cols) > 0 {
		err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols).Error
		if err != nil {
			return nil, storeErr("products.update", err)
		}
	}
	return r.FindByID(ctx, id)
}
