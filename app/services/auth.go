package services

import (
	"context"
	"errors"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/oauth"
)

type AuthService struct {
	users       *repositories.UserRepository
	idp         oauth.Provider
	ownerOpenID string
}

func NewAuthService(users *repositories.UserRepository, idp oauth.Provider, ownerOpenID string) *AuthService {
	return &AuthService{users: users, idp: idp, ownerOpenID: ownerOpenID}
}

// Login redeems an authorization code, upserts the user and issues a
// session token.
func (s *AuthService) Login(ctx context.Context, code, redirectURI string) (string, *models.User, error) {
	profile, err := s.idp.Exchange(ctx, code, redirectURI)
	if err != nil {
		return "", nil, err
	}

	user, err := s.users.Upsert(ctx, models.UserProfile{
		OpenID:      profile.OpenID,
		Name:        profile.Name,
		Email:       profile.Email,
		LoginMethod: profile.LoginMethod,
	}, s.ownerOpenID)
	if err != nil {
		return "", nil, err
	}

	token, err := auth.GenerateToken(user.ID, user.OpenID)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, "auth.login", err)
	}
	logger.WithCtx(ctx).Info("user signed in", "user_id", user.ID, "role", user.Role)
	return token, user, nil
}

// Me returns the signed-in user, or nil for anonymous callers.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, id.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// Lookup loads the identity for a session's user id. It runs on every
// authenticated request so role changes apply immediately.
func (s *AuthService) Lookup(ctx context.Context, userID uint) (*auth.Identity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{
		UserID: user.ID,
		OpenID: user.OpenID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   string(user.Role),
	}, nil
}
