package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmfed/bigachat-bot/internal/config"
)

// fakeChat records outgoing Telegram calls so handler flows can be
// exercised without a live chat connection.
type fakeChat struct {
	sent    []*bot.SendMessageParams
	actions []*bot.SendChatActionParams
	sendErr error
}

func (f *fakeChat) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.sent = append(f.sent, params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &models.Message{ID: len(f.sent)}, nil
}

func (f *fakeChat) SendChatAction(_ context.Context, params *bot.SendChatActionParams) (bool, error) {
	f.actions = append(f.actions, params)
	return true, nil
}

// fakeAPI is a scripted bigachat.Client.
type fakeAPI struct {
	token    string
	tokenErr error
	reply    string
	replyErr error

	tokenCalls int
	chatCalls  int
	gotPrompt  string
	gotToken   string
}

func (f *fakeAPI) GetAccessToken(context.Context) (string, error) {
	f.tokenCalls++
	return f.token, f.tokenErr
}

func (f *fakeAPI) SendMessage(_ context.Context, prompt, token string) (string, error) {
	f.chatCalls++
	f.gotPrompt = prompt
	f.gotToken = token
	return f.reply, f.replyErr
}

func testDeps(api *fakeAPI) HandlerDeps {
	return HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{
			Messages: config.MessagesConfig{
				Welcome:       "welcome text",
				Help:          "help text",
				GeneralError:  "general error text",
				CriticalError: "critical error text",
			},
		},
		API: api,
	}
}

func textUpdate(chatID int64, userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   10,
			Text: text,
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: userID},
		},
	}
}

func lastSentText(t *testing.T, chat *fakeChat) string {
	t.Helper()
	if len(chat.sent) == 0 {
		t.Fatal("no message was sent")
	}
	return chat.sent[len(chat.sent)-1].Text
}

func TestStartHandler(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeAPI{})
	chat := &fakeChat{}

	startHandler{deps}.Handle(context.Background(), chat, textUpdate(42, 7, "/start"))

	if got := lastSentText(t, chat); got != "welcome text" {
		t.Errorf("got reply %q, want fixed welcome text", got)
	}
	if chat.sent[0].ChatID != int64(42) {
		t.Errorf("got chat id %v, want 42", chat.sent[0].ChatID)
	}
}

func TestHelpHandler(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeAPI{})
	chat := &fakeChat{}

	helpHandler{deps}.Handle(context.Background(), chat, textUpdate(42, 7, "/help"))

	if got := lastSentText(t, chat); got != "help text" {
		t.Errorf("got reply %q, want fixed help text", got)
	}
}

func TestCommandHandlersIgnoreUpdatesWithoutSender(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeAPI{})
	chat := &fakeChat{}
	update := &models.Update{ID: 1, Message: &models.Message{Chat: models.Chat{ID: 42}}}

	startHandler{deps}.Handle(context.Background(), chat, update)
	helpHandler{deps}.Handle(context.Background(), chat, update)

	if len(chat.sent) != 0 {
		t.Errorf("sent %d messages for updates without sender, want 0", len(chat.sent))
	}
}

func TestRelayHappyPath(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{token: "T", reply: "there"}
	chat := &fakeChat{}

	relayHandler{testDeps(api)}.Handle(context.Background(), chat, textUpdate(42, 7, "hi"))

	if got := lastSentText(t, chat); got != "there" {
		t.Errorf("got reply %q, want AI reply verbatim", got)
	}
	if api.tokenCalls != 1 {
		t.Errorf("got %d token calls, want 1", api.tokenCalls)
	}
	if api.chatCalls != 1 {
		t.Errorf("got %d chat calls, want 1", api.chatCalls)
	}
	if api.gotPrompt != "hi" {
		t.Errorf("got prompt %q, want %q", api.gotPrompt, "hi")
	}
	if api.gotToken != "T" {
		t.Errorf("got token %q, want %q", api.gotToken, "T")
	}
	if len(chat.actions) != 1 || chat.actions[0].Action != models.ChatActionTyping {
		t.Error("typing action was not sent before relaying")
	}
}

func TestRelayFetchesFreshTokenPerMessage(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{token: "T", reply: "ok"}
	h := relayHandler{testDeps(api)}
	chat := &fakeChat{}

	h.Handle(context.Background(), chat, textUpdate(42, 7, "first"))
	h.Handle(context.Background(), chat, textUpdate(42, 7, "second"))

	if api.tokenCalls != 2 {
		t.Errorf("got %d token calls for 2 messages, want 2 (no token reuse)", api.tokenCalls)
	}
}

func TestRelayTokenFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{tokenErr: errors.New("boom")}
	chat := &fakeChat{}

	relayHandler{testDeps(api)}.Handle(context.Background(), chat, textUpdate(42, 7, "hi"))

	if got := lastSentText(t, chat); got != "general error text" {
		t.Errorf("got reply %q, want fixed apology", got)
	}
	if api.chatCalls != 0 {
		t.Errorf("got %d chat calls after token failure, want 0", api.chatCalls)
	}
}

func TestRelayChatFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{token: "T", replyErr: errors.New("boom")}
	chat := &fakeChat{}

	relayHandler{testDeps(api)}.Handle(context.Background(), chat, textUpdate(42, 7, "hi"))

	if got := lastSentText(t, chat); got != "general error text" {
		t.Errorf("got reply %q, want fixed apology", got)
	}
}

func TestRelayIgnoresUnknownCommands(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{token: "T", reply: "ok"}
	chat := &fakeChat{}

	relayHandler{testDeps(api)}.Handle(context.Background(), chat, textUpdate(42, 7, "/unknown"))

	if len(chat.sent) != 0 {
		t.Errorf("sent %d messages for a command, want 0", len(chat.sent))
	}
	if api.tokenCalls != 0 {
		t.Errorf("got %d token calls for a command, want 0", api.tokenCalls)
	}
}

func TestRelayIgnoresEmptyUpdates(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	chat := &fakeChat{}

	relayHandler{testDeps(api)}.Handle(context.Background(), chat, &models.Update{ID: 1})

	if len(chat.sent) != 0 || api.tokenCalls != 0 {
		t.Error("empty update must not trigger the relay flow")
	}
}

func TestRecoverNotifiesAddressableChat(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeAPI{})
	chat := &fakeChat{}
	update := textUpdate(42, 7, "hi")

	func() {
		defer recoverAndNotify(context.Background(), deps, chat, update)
		panic("boom")
	}()

	if got := lastSentText(t, chat); got != "critical error text" {
		t.Errorf("got reply %q, want fixed critical error notice", got)
	}
}

func TestRecoverWithoutChatLogsOnly(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeAPI{})
	chat := &fakeChat{}

	func() {
		defer recoverAndNotify(context.Background(), deps, chat, &models.Update{ID: 1})
		panic("boom")
	}()

	if len(chat.sent) != 0 {
		t.Errorf("sent %d messages for update without chat, want 0", len(chat.sent))
	}
}

func TestRecoverNoPanicIsNoOp(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeAPI{})
	chat := &fakeChat{}

	func() {
		defer recoverAndNotify(context.Background(), deps, chat, textUpdate(42, 7, "hi"))
	}()

	if len(chat.sent) != 0 {
		t.Error("recovery middleware must not send anything when no panic occurred")
	}
}
