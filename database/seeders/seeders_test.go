package seeders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/internal/testdb"
)

func TestRunAllIsRepeatable(t *testing.T) {
	db := testdb.Open(t)

	require.NoError(t, RunAll(db))

	require.NoError(t, db.Model(&models.AdminSetting{}).
		Where("key = ?", models.SettingContactEmail).
		Update("value", "owner@example.com").Error)

	require.NoError(t, RunAll(db))

	var products int64
	require.NoError(t, db.Model(&models.Product{}).Count(&products).Error)
	assert.EqualValues(t, len(starterCatalogue), products)

	var email models.AdminSetting
	require.NoError(t, db.Where("key = ?", models.SettingContactEmail).First(&email).Error)
	assert.Equal(t, "owner@example.com", email.Value, "seeding must not overwrite admin edits")

	var bpc models.Product
	require.NoError(t, db.Where("name = ?", "BPC 157").First(&bpc).Error)
	assert.EqualValues(t, 7999, bpc.Price)
}
