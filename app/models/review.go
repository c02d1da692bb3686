package models

import "time"

// Review is a product review. It is created pending (Approved=false) and
// only approved reviews are public.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"productId"`
	UserID    *uint     `gorm:"index" json:"userId"`
	Rating    int       `gorm:"not null" json:"rating"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Verified  bool      `gorm:"not null" json:"verified"`
	Approved  bool      `gorm:"not null;index" json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingSummary is the aggregate over a product's approved reviews.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int64   `json:"totalReviews"`
}
