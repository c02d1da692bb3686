package seeders

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/humanebio/storefront/app/models"
)

func init() { Register("admin_settings", seedSettings) }

// defaultPrompt matches the chat assistant's built-in prompt so admins see
// what is in effect.
const defaultPrompt = "You are HumaneBio's AI assistant. Help users find the perfect nootropic or peptide stack " +
	"based on their goals. Provide scientifically-backed recommendations. Be professional, helpful, and safety-conscious."

// seedSettings inserts the settings keys that do not exist yet. Values an
// admin already changed are left alone.
func seedSettings(db *gorm.DB) error {
	rows := []models.AdminSetting{
		{Key: models.SettingLLMPrompt, Value: defaultPrompt},
		{Key: models.SettingContactEmail, Value: "support@humanebio.com"},
		{Key: models.SettingContactDiscord, Value: ""},
		{Key: models.SettingContactTelegram, Value: ""},
		{Key: models.SettingContactWhatsApp, Value: ""},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
