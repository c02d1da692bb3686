package services

import (
	"context"
	"strings"

	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/metrics"
	"github.com/humanebio/storefront/pkg/validate"
)

type NewsletterService struct {
	subscribers *repositories.NewsletterRepository
}

func NewNewsletterService(subscribers *repositories.NewsletterRepository) *NewsletterService {
	return &NewsletterService{subscribers: subscribers}
}

// Subscribe adds email to the list. Subscribing twice succeeds both times.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validate.Email(email) {
		return apperr.New(apperr.BadRequest, "newsletter.subscribe", "Invalid email address")
	}
	created, err := s.subscribers.Subscribe(ctx, email)
	if err != nil {
		return err
	}
	if created {
		metrics.NewsletterSignups.WithLabelValues("new").Inc()
	} else {
		metrics.NewsletterSignups.WithLabelValues("duplicate").Inc()
	}
	return nil
}
