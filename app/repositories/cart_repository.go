package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/pkg/apperr"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// AddOrIncrement inserts the (user, product) row or, when it already exists,
// adds quantity to it in the same statement. Concurrent adds for the same
// pair cannot lose an update.
func (r *CartRepository) AddOrIncrement(ctx context.Context, userID, productID uint, quantity int) error {
	now := time.Now()
	item := models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": now,
		}),
	}).Create(&item).Error
	return storeErr("cart.addOrIncrement", err)
}

// ListByUser returns the user's cart rows with their product, oldest first.
func (r *CartRepository) ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := r.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).Order("id asc").Find(&items).Error
	if err != nil {
		return nil, storeErr("cart.listByUser", err)
	}
	return items, nil
}

// Delete removes the row if it belongs to userID. Removing an absent row is
// not an error.
func (r *CartRepository) Delete(ctx context.Context, userID, cartID uint) error {
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", cartID, userID).
		Delete(&models.CartItem{}).Error
	return storeErr("cart.delete", err)
}

// SetQuantity overwrites the quantity of the caller's row. quantity must be
// positive; callers delete instead of writing zero.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, cartID uint, quantity int) error {
	if quantity < 1 {
		return apperr.New(apperr.BadRequest, "cart.setQuantity", "Quantity must be at least 1")
	}
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", cartID, userID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if res.Error != nil {
		return storeErr("cart.setQuantity", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.CartItem{}).
			Where("id = ? AND user_id = ?", cartID, userID).Count(&n).Error; err != nil {
			return storeErr("cart.setQuantity", err)
		}
		if n == 0 {
			return apperr.New(apperr.NotFound, "cart.setQuantity", "Cart item not found")
		}
	}
	return nil
}

// ClearUser deletes every row of the user's cart.
func (r *CartRepository) ClearUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	return storeErr("cart.clearUser", err)
}
