package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/humanebio/storefront/app/models"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts or refreshes the user keyed by OpenID and stamps
// last_signed_in. The configured owner is promoted to admin; other users keep
// their current role.
func (r *UserRepository) Upsert(ctx context.Context, p models.UserProfile, ownerOpenID string) (*models.User, error) {
	now := time.Now()
	user := models.User{
		OpenID:       p.OpenID,
		Name:         p.Name,
		Email:        p.Email,
		LoginMethod:  p.LoginMethod,
		Role:         models.RoleUser,
		LastSignedIn: now,
	}
	update := []string{"name", "email", "login_method", "last_signed_in", "updated_at"}
	if ownerOpenID != "" && p.OpenID == ownerOpenID {
		user.Role = models.RoleAdmin
		update = append(update, "role")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "open_id"}},
		DoUpdates: clause.AssignmentColumns(update),
	}).Create(&user).Error
	if err != nil {
		return nil, storeErr("users.upsert", err)
	}

	return r.FindByOpenID(ctx, p.OpenID)
}

// FindByOpenID looks up a user by provider identity.
func (r *UserRepository) FindByOpenID(ctx context.Context, openID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("open_id = ?", openID).First(&user).Error; err != nil {
		return nil, storeErr("users.findByOpenID", err)
	}
	return &user, nil
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storeErr("users.findByID", err)
	}
	return &user, nil
}

// SetStripeCustomerID records the payment provider's customer id.
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id uint, customerID string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
	return storeErr("users.setStripeCustomerID", err)
}
