package services

import (
	"context"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
)

type LLMSettings struct {
	APIURL string `json:"apiUrl"`
	Prompt string `json:"prompt"`
}

type LLMSettingsPatch struct {
	APIURL *string `json:"apiUrl" validate:"nullable,url"`
	Prompt *string `json:"prompt" validate:"nullable,max=20000"`
}

type ContactSettings struct {
	Email    string `json:"email"`
	Discord  string `json:"discord"`
	Telegram string `json:"telegram"`
	WhatsApp string `json:"whatsapp"`
}

type ContactSettingsPatch struct {
	Email    *string `json:"email" validate:"nullable,email"`
	Discord  *string `json:"discord" validate:"nullable,max=255"`
	Telegram *string `json:"telegram" validate:"nullable,max=255"`
	WhatsApp *string `json:"whatsapp" validate:"nullable,max=255"`
}

var contactKeys = []string{
	models.SettingContactEmail,
	models.SettingContactDiscord,
	models.SettingContactTelegram,
	models.SettingContactWhatsApp,
}

// SettingsService reads and writes the admin-editable key/value settings.
type SettingsService struct {
	settings *repositories.SettingRepository
}

func NewSettingsService(settings *repositories.SettingRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) LLM(ctx context.Context) (LLMSettings, error) {
	kv, err := s.settings.GetMany(ctx, models.SettingLLMAPIURL, models.SettingLLMPrompt)
	if err != nil {
		return LLMSettings{}, err
	}
	return LLMSettings{APIURL: kv[models.SettingLLMAPIURL], Prompt: kv[models.SettingLLMPrompt]}, nil
}

// UpdateLLM writes the non-nil fields and returns the resulting settings.
func (s *SettingsService) UpdateLLM(ctx context.Context, p LLMSettingsPatch) (LLMSettings, error) {
	kv := map[string]string{}
	put(kv, models.SettingLLMAPIURL, p.APIURL)
	put(kv, models.SettingLLMPrompt, p.Prompt)
	if err := s.settings.SetMany(ctx, kv); err != nil {
		return LLMSettings{}, err
	}
	return s.LLM(ctx)
}

func (s *SettingsService) Contact(ctx context.Context) (ContactSettings, error) {
	kv, err := s.settings.GetMany(ctx, contactKeys...)
	if err != nil {
		return ContactSettings{}, err
	}
	return ContactSettings{
		Email:    kv[models.SettingContactEmail],
		Discord:  kv[models.SettingContactDiscord],
		Telegram: kv[models.SettingContactTelegram],
		WhatsApp: kv[models.SettingContactWhatsApp],
	}, nil
}

func (s *SettingsService) UpdateContact(ctx context.Context, p ContactSettingsPatch) (ContactSettings, error) {
	kv := map[string]string{}
	put(kv, models.SettingContactEmail, p.Email)
	put(kv, models.SettingContactDiscord, p.Discord)
	put(kv, models.SettingContactTelegram, p.Telegram)
	put(kv, models.SettingContactWhatsApp, p.WhatsApp)
	if err := s.settings.SetMany(ctx, kv); err != nil {
		return ContactSettings{}, err
	}
	return s.Contact(ctx)
}

func put(kv map[string]string, key string, v *string) {
	if v != nil {
		kv[key] = *v
	}
}
