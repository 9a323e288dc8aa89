// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"runtime/debug"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover creates a middleware that catches panics escaping any handler.
// Panics are logged with stack context; if the triggering update carries an
// addressable chat, the fixed critical-error notice is sent there. Updates
// without a chat (malformed or non-message platform events) are logged only.
func Recover(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			defer recoverAndNotify(ctx, deps, bot, update)
			next(ctx, bot, update)
		}
	}
}

// recoverAndNotify must be invoked directly by a defer statement so that
// recover observes the in-flight panic.
func recoverAndNotify(ctx context.Context, deps HandlerDeps, tg ChatClient, update *models.Update) {
	r := recover()
	if r == nil {
		return
	}

	log := deps.Logger.With("middleware", "recover")

	var updateID int64
	if update != nil {
		updateID = update.ID
	}
	log.ErrorContext(ctx, "Recovered from panic in handler",
		"panic", r,
		"update_id", updateID,
		"stack", string(debug.Stack()))

	if update == nil || update.Message == nil {
		// No addressable chat to notify
		return
	}

	chatID := update.Message.Chat.ID
	if _, err := tg.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: deps.Config.Messages.CriticalError}); err != nil {
		log.ErrorContext(ctx, "Failed to send critical error message", "error", err, "chat_id", chatID)
	}
}
