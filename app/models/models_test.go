package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumsAreClosed(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())

	assert.True(t, CategoryPeptide.Valid())
	assert.False(t, Category("supplement").Valid())

	for _, s := range []OrderStatus{OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("refunded").Valid())

	assert.True(t, ChatAssistant.Valid())
	assert.False(t, ChatRole("system").Valid())
}

func TestStringListColumn(t *testing.T) {
	v, err := StringList{"https://pubmed.ncbi.nlm.nih.gov/1"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["https://pubmed.ncbi.nlm.nih.gov/1"]`, v)

	v, err = StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l StringList
	require.NoError(t, l.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringList{"a", "b"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
}

func TestProductPatchColumns(t *testing.T) {
	price := int64(7999)
	active := false
	cols := ProductPatch{Price: &price, Active: &active}.Columns()

	assert.Equal(t, map[string]interface{}{"price": int64(7999), "active": false}, cols)
	assert.Empty(t, ProductPatch{}.Columns())
}
