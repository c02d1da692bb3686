package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/llm"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/metrics"
)

const (
	// DefaultSystemPrompt is used until an admin sets llm_prompt.
	DefaultSystemPrompt = "You are HumaneBio's AI assistant. Help users find the perfect nootropic or peptide stack " +
		"based on their goals. Provide scientifically-backed recommendations. Be professional, helpful, and safety-conscious."

	// FallbackReply is returned when the model cannot answer.
	FallbackReply = "Unable to generate response"

	MaxChatMessageLength = 4000
	chatHistoryTurns     = 10
)

type ChatService struct {
	chat     *repositories.ChatRepository
	settings *repositories.SettingRepository
	model    llm.Provider
}

func NewChatService(chat *repositories.ChatRepository, settings *repositories.SettingRepository, model llm.Provider) *ChatService {
	return &ChatService{chat: chat, settings: settings, model: model}
}

// Send asks the assistant and returns its reply. Signed-in users get their
// recent history as context and both turns are stored. A model failure
// yields FallbackReply, not an error.
func (s *ChatService) Send(ctx context.Context, userID *uint, message string) (string, error) {
	const op = "chat.sendMessage"
	log := logger.WithCtx(ctx)

	if strings.TrimSpace(message) == "" {
		return "", apperr.New(apperr.BadRequest, op, "Message is required")
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLength {
		return "", apperr.New(apperr.BadRequest, op, "Message must be 4000 characters or fewer")
	}

	endpoint, prompt := s.llmSettings(ctx)
	msgs := []llm.Message{{Role: "system", Content: prompt}}

	if userID != nil {
		history, err := s.chat.ListByUser(ctx, *userID, chatHistoryTurns)
		if err != nil {
			return "", err
		}
		for _, h := range history {
			msgs = append(msgs, llm.Message{Role: string(h.Role), Content: h.Content})
		}
		if err := s.chat.Append(ctx, &models.ChatMessage{UserID: userID, Role: models.ChatUser, Content: message}); err != nil {
			return "", err
		}
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: message})

	reply, err := s.model.Complete(ctx, llm.Request{Endpoint: endpoint, Messages: msgs})
	if err != nil {
		log.Error("chat completion failed", "error", err)
		metrics.ChatCompletions.WithLabelValues("fallback").Inc()
		reply = FallbackReply
	} else {
		metrics.ChatCompletions.WithLabelValues("ok").Inc()
	}

	if userID != nil {
		if err := s.chat.Append(ctx, &models.ChatMessage{UserID: userID, Role: models.ChatAssistant, Content: reply}); err != nil {
			return "", err
		}
	}
	return reply, nil
}

// llmSettings returns the admin overrides for endpoint and prompt. An
// unreadable settings table falls back to the defaults.
func (s *ChatService) llmSettings(ctx context.Context) (endpoint, prompt string) {
	prompt = DefaultSystemPrompt
	kv, err := s.settings.GetMany(ctx, models.SettingLLMAPIURL, models.SettingLLMPrompt)
	if err != nil {
		logger.WithCtx(ctx).Warn("chat: settings unavailable, using defaults", "error", err)
		return "", prompt
	}
	if p := strings.TrimSpace(kv[models.SettingLLMPrompt]); p != "" {
		prompt = p
	}
	return kv[models.SettingLLMAPIURL], prompt
}

// History returns the most recent messages across all users, newest first.
func (s *ChatService) History(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.chat.ListRecent(ctx, limit)
}
