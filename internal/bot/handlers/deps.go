package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmfed/bigachat-bot/internal/bigachat"
	"github.com/dmfed/bigachat-bot/internal/config"
)

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	API    bigachat.Client
}

// ChatClient is the slice of the Telegram API the handlers use to reply.
// *bot.Bot satisfies it; tests substitute a fake so the relay flow runs
// without a live chat connection.
type ChatClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}
