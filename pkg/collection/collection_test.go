package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type line struct {
	id  uint
	qty int
}

func TestMapUniqueKeyBy(t *testing.T) {
	lines := []line{{1, 2}, {3, 1}, {1, 5}}

	ids := Unique(Map(lines, func(l line) uint { return l.id }))
	assert.Equal(t, []uint{1, 3}, ids)

	byID := KeyBy(lines, func(l line) uint { return l.id })
	assert.Len(t, byID, 2)
	assert.Equal(t, 5, byID[1].qty)

	assert.Empty(t, Unique([]uint(nil)))
	assert.Empty(t, KeyBy([]line{}, func(l line) uint { return l.id }))
}
