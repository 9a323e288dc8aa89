package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type relayHandler struct {
	deps HandlerDeps
}

// NewRelayHandler creates the default handler that forwards any non-command
// text message to the BigAChat API and replies with the result. Each message
// costs one OAuth round trip followed by one chat-completion call; nothing
// is shared between updates.
func NewRelayHandler(deps HandlerDeps) bot.HandlerFunc {
	h := relayHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.Handle(ctx, b, update)
	}
}

func (h relayHandler) Handle(ctx context.Context, tg ChatClient, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "relay")

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		log.DebugContext(ctx, "Ignoring update with nil message, empty text, or nil sender", "update_id", update.ID)
		return
	}

	// Unmatched commands are not relayed
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", msg.Chat.ID, "text", msg.Text)
		return
	}

	chatID := msg.Chat.ID
	log.InfoContext(ctx, "Relaying message", "chat_id", chatID, "user_id", msg.From.ID, "text", msg.Text)

	// Best-effort presence indicator
	if _, err := tg.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping}); err != nil {
		log.DebugContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
	}

	token, err := deps.API.GetAccessToken(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Relay failed: no access token", "error", err, "chat_id", chatID)
		h.replyGeneralError(ctx, tg, chatID)
		return
	}

	reply, err := deps.API.SendMessage(ctx, msg.Text, token)
	if err != nil {
		log.ErrorContext(ctx, "Relay failed: no chat completion", "error", err, "chat_id", chatID)
		h.replyGeneralError(ctx, tg, chatID)
		return
	}

	if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}

func (h relayHandler) replyGeneralError(ctx context.Context, tg ChatClient, chatID int64) {
	log := h.deps.Logger.With("handler", "relay")
	if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: h.deps.Config.Messages.GeneralError}); err != nil {
		log.ErrorContext(ctx, "Failed to send error message", "error", err, "chat_id", chatID)
	}
}
