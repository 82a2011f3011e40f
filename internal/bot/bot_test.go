package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/auth"
	"github.com/xaenox/askbot/internal/chat"
	"github.com/xaenox/askbot/internal/classifier"
	"github.com/xaenox/askbot/internal/generator"
	"github.com/xaenox/askbot/internal/models"
	"github.com/xaenox/askbot/internal/storage"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeMessenger) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeMessenger) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeMessenger) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type echoResponder struct{}

func (echoResponder) Generate(ctx context.Context, prompt string) generator.Reply {
	return generator.Reply{Text: "Yanıt: bol su için."}
}

func newTestBot(t *testing.T) (*Bot, *fakeMessenger, *storage.MemoryStorage) {
	t.Helper()
	logger := zap.NewNop()
	store := storage.NewMemoryStorage()
	accounts := auth.NewAccounts(store, auth.NewTokens("secret", time.Hour), logger)
	svc := chat.NewService(store, classifier.NewKeywordClassifier(), echoResponder{}, logger)

	api := newFakeMessenger()
	return NewWithMessenger(api, svc, accounts, logger), api, store
}

func textMessage(from int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}
	return msg
}

func TestQuestionIsAnswered(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, textMessage(42, "Başım çok ağrıyor"))
	reply := api.last(t)
	assert.Equal(t, "Yanıt: bol su için.", reply.Text)
	assert.Equal(t, 1, reply.ReplyToMessageID)

	user, err := store.GetUserByUsername(ctx, "tg_42")
	require.NoError(t, err)
	chats, err := store.ListChats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Len(t, chats[0].Messages, 2)

	b.handleMessage(ctx, textMessage(42, "Peki ya uyku?"))
	chats, err = store.ListChats(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1, "follow-up stays in the current chat")
	assert.Len(t, chats[0].Messages, 4)

	b.handleMessage(ctx, textMessage(42, "/new"))
	b.handleMessage(ctx, textMessage(42, "Stres"))
	chats, err = store.ListChats(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
}

func TestCategorySwitchAndRedirect(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, textMessage(7, "Bilgisayarım çok yavaş çalışıyor"))
	assert.Contains(t, api.last(t).Text, "Teknoloji")

	b.handleMessage(ctx, textMessage(7, "/category technology"))
	assert.Contains(t, api.last(t).Text, "Teknoloji")

	b.handleMessage(ctx, textMessage(7, "Bilgisayarım çok yavaş çalışıyor"))
	assert.Equal(t, "Yanıt: bol su için.", api.last(t).Text)

	b.handleMessage(ctx, textMessage(7, "/category sports"))
	assert.Contains(t, api.last(t).Text, "Geçersiz kategori")

	b.handleMessage(ctx, textMessage(7, "/categories"))
	listing := api.last(t)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, listing.ParseMode)
	assert.Contains(t, listing.Text, "Yapay Zeka")
	assert.Contains(t, listing.Text, "technology\\) ✅")
}

func TestSaveAndHistory(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleMessage(ctx, textMessage(9, "/save"))
	assert.Contains(t, api.last(t).Text, "Kaydedilecek bir yanıt yok")

	b.handleMessage(ctx, textMessage(9, "Grip oldum"))
	b.handleMessage(ctx, textMessage(9, "/save"))
	assert.Contains(t, api.last(t).Text, "Yanıt: bol su için.")

	b.handleMessage(ctx, textMessage(9, "/save kendi notum"))
	user, err := store.GetUserByUsername(ctx, "tg_9")
	require.NoError(t, err)
	saved, err := store.ListSavedResponses(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "kendi notum", saved[0].Content)

	b.handleMessage(ctx, textMessage(9, "/history"))
	history := api.last(t)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, history.ParseMode)
	assert.Contains(t, history.Text, "2 mesaj")
}

func TestUnknownCommand(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleMessage(context.Background(), textMessage(1, "/tags"))
	assert.Contains(t, api.last(t).Text, "/help")
}

func TestStartStopsOnCancel(t *testing.T) {
	b, api, _ := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	api.updates <- tgbotapi.Update{Message: textMessage(5, "/start")}
	require.Eventually(t, func() bool { return api.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.True(t, api.stopped)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Sohbet 2024\-01\-02 10:30`, escapeMarkdown("Sohbet 2024-01-02 10:30"))
	assert.Equal(t, `a\_b\*c\.`, escapeMarkdown("a_b*c."))
}

func TestTelegramUserIsNotAWebAccount(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()
	accounts := auth.NewAccounts(store, auth.NewTokens("secret", time.Hour), zap.NewNop())

	_, err := accounts.Register(ctx, "tg_77", "mallory@example.com", "secret1")
	require.ErrorIs(t, err, auth.ErrValidation)
	mallory, err := accounts.Register(ctx, "mallory", "mallory@example.com", "secret1")
	require.NoError(t, err)

	b.handleMessage(ctx, textMessage(77, "Başım çok ağrıyor"))
	assert.Equal(t, "Yanıt: bol su için.", api.last(t).Text)

	victim, err := store.GetUserByUsername(ctx, "tg_77")
	require.NoError(t, err)
	assert.NotEqual(t, mallory.ID, victim.ID)

	leaked, err := store.ListChats(ctx, mallory.ID)
	require.NoError(t, err)
	assert.Empty(t, leaked)
}

func TestPasswordAccountWithTelegramNameIsRefused(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	holder := &models.User{Username: "tg_78", Email: "holder@example.com", PasswordHash: hash}
	require.NoError(t, store.CreateUser(ctx, holder))

	b.handleMessage(ctx, textMessage(78, "Başım çok ağrıyor"))
	assert.True(t, strings.HasPrefix(api.last(t).Text, "⚠️"))

	chats, err := store.ListChats(ctx, holder.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
}
