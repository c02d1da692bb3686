package services

import (
	"context"
	"errors"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
)

type CartService struct {
	cart     *repositories.CartRepository
	products *repositories.ProductRepository
}

func NewCartService(cart *repositories.CartRepository, products *repositories.ProductRepository) *CartService {
	return &CartService{cart: cart, products: products}
}

// AddItem puts quantity units of an active product in the cart, merging
// with an existing line for the same product.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) error {
	const op = "cart.addItem"
	if quantity < 1 {
		return apperr.New(apperr.BadRequest, op, "Quantity must be at least 1")
	}
	if _, err := s.purchasable(ctx, op, productID); err != nil {
		return err
	}
	return s.cart.AddOrIncrement(ctx, userID, productID, quantity)
}

// purchasable loads an active product or returns NotFound.
func (s *CartService) purchasable(ctx context.Context, op string, productID uint) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && !p.Active) {
		return nil, apperr.Wrapf(apperr.NotFound, op, ErrProductNotFound, "Product not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetItems returns the user's cart lines with their products.
func (s *CartService) GetItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	return s.cart.ListByUser(ctx, userID)
}

// RemoveItem deletes one of the user's lines. Removing a line that is gone
// or belongs to someone else changes nothing and succeeds.
func (s *CartService) RemoveItem(ctx context.Context, userID, cartID uint) error {
	return s.cart.Delete(ctx, userID, cartID)
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, cartID uint, quantity int) error {
	if quantity <= 0 {
		return s.cart.Delete(ctx, userID, cartID)
	}
	return s.cart.SetQuantity(ctx, userID, cartID, quantity)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.cart.ClearUser(ctx, userID)
}
