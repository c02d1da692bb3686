// Package payment creates and retrieves hosted checkout sessions with the
// payment provider (Stripe). Callers work with the types below; nothing
// outside this package imports stripe-go.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/humanebio/storefront/pkg/apperr"
)

// Metadata keys carried on sessions and their line items.
const (
	MetaUserID    = "user_id"
	MetaProductID = "product_id"
)

// LineItem is one priced product line of a checkout.
type LineItem struct {
	ProductID  uint
	Name       string
	UnitAmount int64 // cents
	Quantity   int64
}

// SessionRequest describes a checkout to open.
type SessionRequest struct {
	UserID        uint
	CustomerEmail string
	Items         []LineItem
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is an opened checkout: the client is redirected to URL.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// PaidItem is a line as the provider confirmed it.
type PaidItem struct {
	ProductID  uint
	Quantity   int64
	UnitAmount int64
}

// SessionDetails is a retrieved checkout session.
type SessionDetails struct {
	ID          string
	Paid        bool
	UserID      uint
	CustomerID  string
	AmountTotal int64
	Items       []PaidItem
	Metadata    map[string]string
}

// Provider is the payment collaborator used by checkout.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*SessionDetails, error)
}

// Stripe implements Provider with Stripe Checkout.
type Stripe struct {
	api      *client.API
	currency string
}

// NewStripe builds a client for secretKey. backends may be nil for the
// live Stripe API.
func NewStripe(secretKey, currency string, backends *stripe.Backends) *Stripe {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Stripe{api: client.New(secretKey, backends), currency: currency}
}

func (s *Stripe) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(strconv.FormatUint(uint64(req.UserID), 10)),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, it := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(it.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(it.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(it.Name),
					Metadata: map[string]string{MetaProductID: strconv.FormatUint(uint64(it.ProductID), 10)},
				},
			},
		})
	}
	params.AddMetadata(MetaUserID, strconv.FormatUint(uint64(req.UserID), 10))
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, providerErr("payment.createSession", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) RetrieveSession(ctx context.Context, id string) (*SessionDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items.data.price.product")

	sess, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, providerErr("payment.retrieveSession", err)
	}
	return toDetails(sess)
}

func toDetails(sess *stripe.CheckoutSession) (*SessionDetails, error) {
	d := &SessionDetails{
		ID:          sess.ID,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal: sess.AmountTotal,
		Metadata:    sess.Metadata,
	}
	if sess.Customer != nil {
		d.CustomerID = sess.Customer.ID
	}

	ref := sess.ClientReferenceID
	if ref == "" {
		ref = sess.Metadata[MetaUserID]
	}
	if uid, err := strconv.ParseUint(ref, 10, 64); err == nil {
		d.UserID = uint(uid)
	}

	if sess.LineItems == nil {
		return d, nil
	}
	for _, li := range sess.LineItems.Data {
		if li.Price == nil || li.Price.Product == nil {
			return nil, apperr.New(apperr.PaymentProvider, "payment.retrieveSession", "Line item without product")
		}
		pid, err := strconv.ParseUint(li.Price.Product.Metadata[MetaProductID], 10, 64)
		if err != nil {
			return nil, apperr.Wrapf(apperr.PaymentProvider, "payment.retrieveSession", err, "Line item without product id")
		}
		d.Items = append(d.Items, PaidItem{
			ProductID:  uint(pid),
			Quantity:   li.Quantity,
			UnitAmount: li.Price.UnitAmount,
		})
	}
	return d, nil
}

// providerErr maps a Stripe failure: an unknown session is NotFound,
// everything else is a PaymentProvider error.
func providerErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
		return apperr.Wrapf(apperr.NotFound, op, err, "Checkout session not found")
	}
	return apperr.Wrap(apperr.PaymentProvider, op, fmt.Errorf("stripe: %w", err))
}
