package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append writes messages in order in one statement.
func (r *ChatRepository) Append(ctx context.Context, msgs ...*models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	return storeErr("chat.append", r.db.WithContext(ctx).Create(msgs).Error)
}

// ListByUser returns the user's last limit messages, oldest first.
func (r *ChatRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("id desc").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, storeErr("chat.listByUser", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListRecent returns the last limit messages across all users, newest first.
func (r *ChatRepository) ListRecent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	if err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, storeErr("chat.listRecent", err)
	}
	return msgs, nil
}
