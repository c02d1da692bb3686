package services

import (
	"context"
	"errors"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/event"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/metrics"
	"github.com/humanebio/storefront/pkg/payment"
)

// Order events published on the bus. The payload is the *models.Order.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
)

// ConfirmedPayment is a payment the provider reports as paid, with the
// lines and unit prices it charged.
type ConfirmedPayment struct {
	Ref      string
	UserID   uint
	Items    []payment.PaidItem
	Shipping models.Shipping
}

type OrderService struct {
	orders *repositories.OrderRepository
	events event.Publisher
}

func NewOrderService(orders *repositories.OrderRepository, events event.Publisher) *OrderService {
	if events == nil {
		events = event.Nop{}
	}
	return &OrderService{orders: orders, events: events}
}

// Materialize records the order for a confirmed payment: the order, its
// items and the removal of the purchased cart lines commit together. Calling it again for the same
// payment returns the order created the first time.
func (s *OrderService) Materialize(ctx context.Context, p ConfirmedPayment) (*models.Order, error) {
	const op = "orders.materialize"
	if p.Ref == "" || p.UserID == 0 {
		return nil, apperr.New(apperr.BadRequest, op, "Payment reference and user are required")
	}
	if len(p.Items) == 0 {
		return nil, apperr.New(apperr.BadRequest, op, "Payment has no items")
	}

	if existing, err := s.orders.FindByPaymentRef(ctx, p.Ref); err != nil || existing != nil {
		return existing, err
	}

	var total int64
	items := make([]models.OrderItem, 0, len(p.Items))
	for _, it := range p.Items {
		if it.Quantity < 1 || it.UnitAmount < 0 {
			return nil, apperr.New(apperr.BadRequest, op, "Invalid payment line")
		}
		total += it.Quantity * it.UnitAmount
		items = append(items, models.OrderItem{
			ProductID:       it.ProductID,
			Quantity:        int(it.Quantity),
			PriceAtPurchase: it.UnitAmount,
		})
	}

	ref := p.Ref
	order := &models.Order{
		UserID:          p.UserID,
		Status:          models.OrderPaid,
		TotalAmount:     total,
		PaymentRef:      &ref,
		ShippingName:    p.Shipping.Name,
		ShippingEmail:   p.Shipping.Email,
		ShippingAddress: p.Shipping.Address,
		ShippingCity:    p.Shipping.City,
		ShippingPostal:  p.Shipping.Postal,
		ShippingCountry: p.Shipping.Country,
	}

	if err := s.orders.CreateWithItems(ctx, order, items, true); err != nil {
		if errors.Is(err, repositories.ErrDuplicatePayment) {
			// a concurrent confirm won the insert
			return s.orders.FindByPaymentRef(ctx, p.Ref)
		}
		return nil, err
	}

	metrics.OrdersMaterialized.Inc()
	metrics.OrderRevenueCents.Add(float64(total))
	logger.WithCtx(ctx).Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", total)
	s.events.Fire(ctx, EventOrderCreated, order)
	return order, nil
}

// UpdateStatus sets any valid status on an existing order.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.New(apperr.BadRequest, "orders.updateStatus", "Invalid order status")
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order, err := s.orders.FindWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("order status updated", "order_id", orderID, "status", status)
	s.events.Fire(ctx, EventOrderStatusUpdated, order)
	return order, nil
}

// ListAll returns every order, newest first.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// GetForUser returns an order visible to the caller: their own, or any
// order for an admin. Other orders are reported as missing.
func (s *OrderService) GetForUser(ctx context.Context, userID uint, admin bool, orderID uint) (*models.Order, error) {
	order, err := s.orders.FindWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && order.UserID != userID {
		return nil, apperr.New(apperr.NotFound, "orders.getById", "Order not found")
	}
	return order, nil
}
