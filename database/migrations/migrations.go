// Package migrations holds the storefront schema, one migration per table.
package migrations

import (
	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/pkg/migration"
)

// All returns every schema migration in order.
func All() []migration.Named {
	return []migration.Named{
		{Name: "2024_01_01_000001_create_users_table", Migration: tables{&models.User{}}},
		{Name: "2024_01_01_000002_create_products_table", Migration: tables{&models.Product{}}},
		{Name: "2024_01_01_000003_create_orders_tables", Migration: tables{&models.Order{}, &models.OrderItem{}}},
		{Name: "2024_01_01_000004_create_cart_items_table", Migration: tables{&models.CartItem{}}},
		{Name: "2024_01_01_000005_create_reviews_table", Migration: tables{&models.Review{}}},
		{Name: "2024_01_01_000006_create_chat_messages_table", Migration: tables{&models.ChatMessage{}}},
		{Name: "2024_01_01_000007_create_newsletter_subscribers_table", Migration: tables{&models.NewsletterSubscriber{}}},
		{Name: "2024_01_01_000008_create_admin_settings_table", Migration: tables{&models.AdminSetting{}}},
	}
}

// tables creates its models on Up and drops them in reverse on Down.
type tables []interface{}

func (t tables) Up(tx *gorm.DB) error {
	return tx.AutoMigrate(t...)
}

func (t tables) Down(tx *gorm.DB) error {
	for i := len(t) - 1; i >= 0; i-- {
		if err := tx.Migrator().DropTable(t[i]); err != nil {
			return err
		}
	}
	return nil
}
