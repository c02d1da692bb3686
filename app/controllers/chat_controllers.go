package controllers

import (
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/ctx"
)

type ChatController struct {
	chat       *services.ChatService
	newsletter *services.NewsletterService
}

func NewChatController(chat *services.ChatService, newsletter *services.NewsletterService) *ChatController {
	return &ChatController{chat: chat, newsletter: newsletter}
}

type sendMessageInput struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type subscribeInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *ChatController) SendMessage(c *ctx.Context) {
	var in sendMessageInput
	if !c.BindJSON(&in) {
		return
	}
	reply, err := h.chat.Send(c.Context(), auth.UserIDPtr(c.Context()), in.Message)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(map[string]string{"content": reply})
}

func (h *ChatController) Subscribe(c *ctx.Context) {
	var in subscribeInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.newsletter.Subscribe(c.Context(), in.Email); err != nil {
		c.Fail(err)
		return
	}
	c.Success(ok)
}
