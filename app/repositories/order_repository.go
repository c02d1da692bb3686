package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/collection"
)

// ErrDuplicatePayment is returned by CreateWithItems when an order for the
// same payment reference already exists.
var ErrDuplicatePayment = errors.New("repositories: order for payment already exists")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithItems persists order and its items and, when clearPurchased is
// set, removes the buyer's cart lines for the purchased products, all in one
// transaction: either everything is written or nothing is. Cart lines for
// other products are left alone.
func (r *OrderRepository) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem, clearPurchased bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.Items = nil
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		if clearPurchased && len(items) > 0 {
			purchased := collection.Map(items, func(it models.OrderItem) uint { return it.ProductID })
			err := tx.Where("user_id = ? AND product_id IN ?", order.UserID, purchased).
				Delete(&models.CartItem{}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		order.ID = 0
		if order.PaymentRef != nil && isDuplicate(err) {
			return apperr.Wrap(apperr.BadRequest, "orders.createWithItems", ErrDuplicatePayment)
		}
		return storeErr("orders.createWithItems", err)
	}
	order.Items = items
	return nil
}

// ListAll returns every order with its items, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := r.db.WithContext(ctx).Preload("Items").Order("created_at desc, id desc").Find(&orders).Error
	if err != nil {
		return nil, storeErr("orders.listAll", err)
	}
	return orders, nil
}

// ListByUser returns the user's orders with their items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := r.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).
		Order("created_at desc, id desc").Find(&orders).Error
	if err != nil {
		return nil, storeErr("orders.listByUser", err)
	}
	return orders, nil
}

// FindWithItems returns one order with its items, or NotFound.
func (r *OrderRepository) FindWithItems(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, storeErr("orders.findWithItems", err)
	}
	return &o, nil
}

// FindByPaymentRef returns the order created for a payment, or (nil, nil)
// when there is none yet.
func (r *OrderRepository) FindByPaymentRef(ctx context.Context, ref string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("payment_ref = ?", ref).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("orders.findByPaymentRef", err)
	}
	return &o, nil
}

// UpdateStatus sets the order's status unconditionally.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return storeErr("orders.updateStatus", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 for a no-op write; tell that apart from a missing row.
		if _, err := r.FindWithItems(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.New(apperr.NotFound, "orders.updateStatus", "Order not found")
			}
			return err
		}
	}
	return nil
}
