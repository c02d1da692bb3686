package models

import "time"

// Admin setting keys.
const (
	SettingLLMAPIURL       = "llm_api_url"
	SettingLLMPrompt       = "llm_prompt"
	SettingContactEmail    = "contact_email"
	SettingContactDiscord  = "contact_discord"
	SettingContactTelegram = "contact_telegram"
	SettingContactWhatsApp = "contact_whatsapp"
)

// AdminSetting is a key/value configuration entry editable by admins.
type AdminSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:key;size:255;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
