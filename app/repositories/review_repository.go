package repositories

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/pkg/apperr"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return storeErr("reviews.create", r.db.WithContext(ctx).Create(review).Error)
}

// ListByProduct returns the product's reviews newest first; approvedOnly
// restricts the result to moderated rows.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uint, approvedOnly bool) ([]models.Review, error) {
	reviews := []models.Review{}
	q := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if approvedOnly {
		q = q.Where("approved = ?", true)
	}
	if err := q.Order("created_at desc, id desc").Find(&reviews).Error; err != nil {
		return nil, storeErr("reviews.listByProduct", err)
	}
	return reviews, nil
}

// ApprovedStats returns the unrounded mean rating and the count over the
// product's approved reviews. The mean is 0 when there are none.
func (r *ReviewRepository) ApprovedStats(ctx context.Context, productID uint) (float64, int64, error) {
	var row struct {
		Avg   sql.NullFloat64
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("AVG(rating * 1.0) AS avg, COUNT(*) AS total").
		Where("product_id = ? AND approved = ?", productID, true).
		Scan(&row).Error
	if err != nil {
		return 0, 0, storeErr("reviews.approvedStats", err)
	}
	if !row.Avg.Valid {
		return 0, row.Total, nil
	}
	return row.Avg.Float64, row.Total, nil
}

// SetApproval flips the approved flag. Setting the current value again is
// not an error; an unknown id is NotFound.
func (r *ReviewRepository) SetApproval(ctx context.Context, id uint, approved bool) error {
	res := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Update("approved", approved)
	if res.Error != nil {
		return storeErr("reviews.setApproval", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.New(apperr.NotFound, "reviews.setApproval", "Review not found")
			}
			return err
		}
	}
	return nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, storeErr("reviews.findByID", err)
	}
	return &review, nil
}

// Delete removes the review; deleting an absent id is not an error.
func (r *ReviewRepository) Delete(ctx context.Context, id uint) error {
	return storeErr("reviews.delete", r.db.WithContext(ctx).Delete(&models.Review{}, id).Error)
}

// ListPending returns every unapproved review, newest first.
func (r *ReviewRepository) ListPending(ctx context.Context) ([]models.Review, error) {
	reviews := []models.Review{}
	err := r.db.WithContext(ctx).Where("approved = ?", false).Order("created_at desc, id desc").Find(&reviews).Error
	if err != nil {
		return nil, storeErr("reviews.listPending", err)
	}
	return reviews, nil
}
