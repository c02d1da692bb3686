// Package services holds the storefront's business rules. Each service is
// built once in the kernel from injected repositories and providers; none
// keeps request state.
package services

import "errors"

var (
	// ErrCartEmpty is wrapped in the BadRequest returned when checking out
	// an empty cart.
	ErrCartEmpty = errors.New("cart is empty")

	// ErrProductNotFound is wrapped in NotFound errors for missing or
	// inactive products.
	ErrProductNotFound = errors.New("product not found")
)
