package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/metrics"
)

// ReviewInput is a review submission. UserID is nil for anonymous reviews.
type ReviewInput struct {
	ProductID uint   `json:"productId" validate:"required,gte=1"`
	Rating    int    `json:"rating" validate:"required,between=1,5"`
	Title     string `json:"title" validate:"required,max=255"`
	Content   string `json:"content" validate:"required,max=5000"`
	UserID    *uint  `json:"-"`
}

type ReviewService struct {
	reviews  *repositories.ReviewRepository
	products *repositories.ProductRepository
}

func NewReviewService(reviews *repositories.ReviewRepository, products *repositories.ProductRepository) *ReviewService {
	return &ReviewService{reviews: reviews, products: products}
}

// Submit stores a review awaiting moderation. It is not public until an
// admin approves it.
func (s *ReviewService) Submit(ctx context.Context, in ReviewInput) (*models.Review, error) {
	const op = "reviews.submitReview"
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.New(apperr.BadRequest, op, "Rating must be between 1 and 5")
	}
	title := strings.TrimSpace(in.Title)
	if n := utf8.RuneCountInString(title); n < 1 || n > 255 {
		return nil, apperr.New(apperr.BadRequest, op, "Title must be 1 to 255 characters")
	}
	content := strings.TrimSpace(in.Content)
	if n := utf8.RuneCountInString(content); n < 1 || n > 5000 {
		return nil, apperr.New(apperr.BadRequest, op, "Content must be 1 to 5000 characters")
	}

	if _, err := s.products.FindByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrapf(apperr.NotFound, op, ErrProductNotFound, "Product not found")
		}
		return nil, err
	}

	review := &models.Review{
		ProductID: in.ProductID,
		UserID:    in.UserID,
		Rating:    in.Rating,
		Title:     title,
		Content:   content,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	metrics.ReviewsSubmitted.Inc()
	return review, nil
}

// ListForProduct returns the product's reviews, newest first. The public
// listing (approvedOnly) degrades to an empty list when the store fails.
func (s *ReviewService) ListForProduct(ctx context.Context, productID uint, approvedOnly bool) ([]models.Review, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID, approvedOnly)
	if err != nil {
		if approvedOnly {
			logger.WithCtx(ctx).Warn("reviews: list degraded to empty", "product_id", productID, "error", err)
			return []models.Review{}, nil
		}
		return nil, err
	}
	return reviews, nil
}

// AverageRating is the mean of the approved ratings rounded to one decimal,
// or zero when there are none or the store fails.
func (s *ReviewService) AverageRating(ctx context.Context, productID uint) models.RatingSummary {
	avg, total, err := s.reviews.ApprovedStats(ctx, productID)
	if err != nil {
		logger.WithCtx(ctx).Warn("reviews: rating degraded to zero", "product_id", productID, "error", err)
		return models.RatingSummary{}
	}
	if total == 0 {
		return models.RatingSummary{}
	}
	return models.RatingSummary{
		AverageRating: math.Round(avg*10) / 10,
		TotalReviews:  total,
	}
}

// SetApproval publishes or hides a review.
func (s *ReviewService) SetApproval(ctx context.Context, reviewID uint, approved bool) error {
	return s.reviews.SetApproval(ctx, reviewID, approved)
}

func (s *ReviewService) Delete(ctx context.Context, reviewID uint) error {
	return s.reviews.Delete(ctx, reviewID)
}

// ListPending returns reviews awaiting moderation, newest first.
func (s *ReviewService) ListPending(ctx context.Context) ([]models.Review, error) {
	return s.reviews.ListPending(ctx)
}
