package models

import "time"

type NewsletterSubscriber struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	SubscribedAt time.Time `gorm:"autoCreateTime" json:"subscribedAt"`
}
