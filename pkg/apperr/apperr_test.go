package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/humanebio/storefront/pkg/apperr"
)

func TestIsMatchesKind(t *testing.T) {
	err := apperr.New(apperr.NotFound, "orders.updateStatus", "order not found")

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, errors.Is(err, apperr.ErrForbidden))
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := apperr.Wrap(apperr.PersistenceUnavailable, "cart.add", errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("service: %w", base)

	assert.Equal(t, apperr.PersistenceUnavailable, apperr.KindOf(wrapped))
	assert.Equal(t, apperr.Internal, apperr.KindOf(errors.New("plain")))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, apperr.Wrap(apperr.Internal, "op", nil))
}

func TestMessageOf(t *testing.T) {
	inner := apperr.New(apperr.BadRequest, "checkout", "Your cart is empty")
	outer := apperr.Wrap(apperr.BadRequest, "checkout.createSession", inner)

	assert.Equal(t, "Your cart is empty", apperr.MessageOf(outer))
	assert.Equal(t, "", apperr.MessageOf(errors.New("x")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "FORBIDDEN", apperr.Forbidden.String())
	assert.Equal(t, "INTERNAL_SERVER_ERROR", apperr.Kind(99).String())
}
