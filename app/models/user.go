package models

import "time"

// Role is a user's access level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User is an identity from the OAuth provider. Rows are upserted on every
// login keyed by OpenID and never deleted.
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OpenID           string    `gorm:"size:64;uniqueIndex;not null" json:"openId"`
	Name             string    `gorm:"type:text" json:"name"`
	Email            string    `gorm:"size:320" json:"email"`
	LoginMethod      string    `gorm:"size:64" json:"loginMethod"`
	Role             Role      `gorm:"size:16;not null;default:user" json:"role"`
	StripeCustomerID string    `gorm:"size:255" json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	LastSignedIn     time.Time `json:"lastSignedIn"`
}

// UserProfile is what the identity provider reports on login.
type UserProfile struct {
	OpenID      string
	Name        string
	Email       string
	LoginMethod string
}
