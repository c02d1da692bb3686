package services

import (
	"context"
	"strings"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/collection"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/metrics"
	"github.com/humanebio/storefront/pkg/payment"
)

// Session metadata keys for the shipping snapshot.
const (
	metaShippingName    = "shipping_name"
	metaShippingEmail   = "shipping_email"
	metaShippingAddress = "shipping_address"
	metaShippingCity    = "shipping_city"
	metaShippingPostal  = "shipping_postal"
	metaShippingCountry = "shipping_country"
)

// CheckoutRequest opens a payment session for the caller's cart. Prices
// come from the catalogue, never from the client.
type CheckoutRequest struct {
	UserID   uint
	Email    string
	Shipping models.Shipping
}

type CheckoutService struct {
	cart     *repositories.CartRepository
	products *repositories.ProductRepository
	users    *repositories.UserRepository
	orders   *OrderService
	payments payment.Provider
	appURL   string
}

func NewCheckoutService(
	cart *repositories.CartRepository,
	products *repositories.ProductRepository,
	users *repositories.UserRepository,
	orders *OrderService,
	payments payment.Provider,
	appURL string,
) *CheckoutService {
	return &CheckoutService{
		cart:     cart,
		products: products,
		users:    users,
		orders:   orders,
		payments: payments,
		appURL:   strings.TrimRight(appURL, "/"),
	}
}

// CreateSession prices the caller's cart from the catalogue and opens a
// hosted checkout for it.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*payment.Session, error) {
	const op = "checkout.createSession"
	log := logger.WithCtx(ctx)

	lines, err := s.cart.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		metrics.CheckoutSessions.WithLabelValues("empty_cart").Inc()
		return nil, apperr.Wrapf(apperr.BadRequest, op, ErrCartEmpty, "Cart is empty")
	}

	ids := collection.Unique(collection.Map(lines, func(l models.CartItem) uint { return l.ProductID }))
	catalogue, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]payment.LineItem, 0, len(lines))
	for _, l := range lines {
		p, ok := catalogue[l.ProductID]
		if !ok || !p.Active {
			return nil, apperr.Wrapf(apperr.NotFound, op, ErrProductNotFound, "Product %d not found", l.ProductID)
		}
		items = append(items, payment.LineItem{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitAmount: p.Price,
			Quantity:   int64(l.Quantity),
		})
	}

	email := req.Shipping.Email
	if email == "" {
		email = req.Email
	}
	sess, err := s.payments.CreateSession(ctx, payment.SessionRequest{
		UserID:        req.UserID,
		CustomerEmail: email,
		Items:         items,
		SuccessURL:    s.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.appURL + "/cart",
		Metadata: map[string]string{
			metaShippingName:    req.Shipping.Name,
			metaShippingEmail:   req.Shipping.Email,
			metaShippingAddress: req.Shipping.Address,
			metaShippingCity:    req.Shipping.City,
			metaShippingPostal:  req.Shipping.Postal,
			metaShippingCountry: req.Shipping.Country,
		},
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues("provider_error").Inc()
		log.Error("checkout session failed", "user_id", req.UserID, "error", err)
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.PaymentProvider, op, err)
		}
		return nil, err
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	log.Info("checkout session created", "user_id", req.UserID, "session_id", sess.ID, "lines", len(items))
	return sess, nil
}

// Confirm turns the caller's paid session into an order. Confirming the
// same session twice returns the same order.
func (s *CheckoutService) Confirm(ctx context.Context, userID uint, sessionID string) (*models.Order, error) {
	const op = "checkout.confirm"
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperr.New(apperr.BadRequest, op, "Missing session id")
	}

	d, err := s.payments.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, apperr.New(apperr.NotFound, op, "Checkout session not found")
	}
	if !d.Paid {
		return nil, apperr.New(apperr.BadRequest, op, "Payment has not completed")
	}

	order, err := s.orders.Materialize(ctx, ConfirmedPayment{
		Ref:    d.ID,
		UserID: userID,
		Items:  d.Items,
		Shipping: models.Shipping{
			Name:    d.Metadata[metaShippingName],
			Email:   d.Metadata[metaShippingEmail],
			Address: d.Metadata[metaShippingAddress],
			City:    d.Metadata[metaShippingCity],
			Postal:  d.Metadata[metaShippingPostal],
			Country: d.Metadata[metaShippingCountry],
		},
	})
	if err != nil {
		return nil, err
	}

	if d.CustomerID != "" {
		if err := s.users.SetStripeCustomerID(ctx, userID, d.CustomerID); err != nil {
			logger.WithCtx(ctx).Warn("could not store payment customer id", "user_id", userID, "error", err)
		}
	}
	return order, nil
}
