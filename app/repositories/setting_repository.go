package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/humanebio/storefront/app/models"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the value for key; ok is false when the key was never set.
func (r *SettingRepository) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	var rows []models.AdminSetting
	if err := r.db.WithContext(ctx).Where(&models.AdminSetting{Key: key}).Limit(1).Find(&rows).Error; err != nil {
		return "", false, storeErr("settings.get", err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Value, true, nil
}

// GetMany returns the values of the keys that are set.
func (r *SettingRepository) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = k
	}

	var rows []models.AdminSetting
	err := r.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: "key"}, Values: values}).
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("settings.getMany", err)
	}
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Set upserts one key.
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	return r.SetMany(ctx, map[string]string{key: value})
}

// SetMany upserts every key in one transaction.
func (r *SettingRepository) SetMany(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range kv {
			row := models.AdminSetting{Key: k, Value: v, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return storeErr("settings.setMany", err)
}
