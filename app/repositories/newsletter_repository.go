package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/humanebio/storefront/app/models"
)

type NewsletterRepository struct {
	db *gorm.DB
}

func NewNewsletterRepository(db *gorm.DB) *NewsletterRepository {
	return &NewsletterRepository{db: db}
}

// Subscribe inserts email unless it is already subscribed. created is false
// for a duplicate, which is not an error.
func (r *NewsletterRepository) Subscribe(ctx context.Context, email string) (created bool, err error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&models.NewsletterSubscriber{Email: email})
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return false, nil
		}
		return false, storeErr("newsletter.subscribe", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Count returns the number of rows for email.
func (r *NewsletterRepository) Count(ctx context.Context, email string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.NewsletterSubscriber{}).Where("email = ?", email).Count(&n).Error
	return n, storeErr("newsletter.count", err)
}
