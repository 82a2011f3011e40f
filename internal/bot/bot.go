// Package bot is the Telegram front-end. Plain messages go through the same
// conversation flow as the HTTP chat endpoint.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/auth"
	"github.com/xaenox/askbot/internal/chat"
	"github.com/xaenox/askbot/internal/classifier"
	"github.com/xaenox/askbot/internal/models"
)

// historyLimit is the number of chats shown by /history.
const historyLimit = 5

// Messenger is the part of the Telegram API the bot uses. *tgbotapi.BotAPI implements it.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UserResolver maps a Telegram account to a store user.
type UserResolver interface {
	EnsureExternalUser(ctx context.Context, username string) (*models.User, error)
}

// session is what the bot remembers about one Telegram user between messages.
type session struct {
	userID     int64
	category   classifier.Category
	chatID     int64
	lastAnswer string
}

type Bot struct {
	api      Messenger
	chats    *chat.Service
	users    UserResolver
	logger   *zap.Logger
	mu       sync.Mutex
	sessions map[int64]*session
	wg       sync.WaitGroup
}

func New(token string, chats *chat.Service, users UserResolver, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))
	return NewWithMessenger(api, chats, users, logger), nil
}

func NewWithMessenger(api Messenger, chats *chat.Service, users UserResolver, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		chats:    chats,
		users:    users,
		logger:   logger,
		sessions: make(map[int64]*session),
	}
}

// Start handles updates until ctx is done and in-flight messages are answered.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	sess, err := b.session(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to resolve user",
			zap.Error(err),
			zap.Int64("telegram_id", message.From.ID))
		b.sendErrorMessage(message.Chat.ID, "Şu anda isteğinizi işleyemiyorum. Lütfen daha sonra tekrar deneyin.")
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message, sess)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}
	b.handleQuestion(ctx, message, sess, content)
}

// session returns the state for a Telegram user, creating the store user on first contact.
func (b *Bot) session(ctx context.Context, telegramID int64) (*session, error) {
	b.mu.Lock()
	sess, ok := b.sessions[telegramID]
	b.mu.Unlock()
	if ok {
		return sess, nil
	}

	user, err := b.users.EnsureExternalUser(ctx, auth.TelegramUsername(telegramID))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if sess, ok := b.sessions[telegramID]; ok {
		return sess, nil
	}
	sess = &session{userID: user.ID, category: classifier.Default}
	b.sessions[telegramID] = sess
	return sess, nil
}

func (b *Bot) handleQuestion(ctx context.Context, message *tgbotapi.Message, sess *session, content string) {
	b.mu.Lock()
	req := chat.Request{
		UserID:   sess.userID,
		Message:  content,
		Category: string(sess.category),
		ChatID:   sess.chatID,
	}
	b.mu.Unlock()

	resp, err := b.chats.Send(ctx, req)
	if errors.Is(err, chat.ErrInvalidChat) {
		b.mu.Lock()
		sess.chatID = 0
		b.mu.Unlock()
		b.sendErrorMessage(message.Chat.ID, "Bu sohbet artık kullanılamıyor. Yeni bir sohbet başlatıldı, lütfen sorunuzu tekrar gönderin.")
		return
	}
	if err != nil {
		b.logger.Error("Failed to answer question",
			zap.Error(err),
			zap.Int64("user_id", sess.userID),
			zap.Int64("chat_id", req.ChatID))
		b.sendErrorMessage(message.Chat.ID, "Mesajınız kaydedilemedi. Lütfen tekrar deneyin.")
		return
	}

	b.mu.Lock()
	sess.chatID = resp.ChatID
	if resp.Generated {
		sess.lastAnswer = resp.Text
	}
	b.mu.Unlock()

	msg := tgbotapi.NewMessage(message.Chat.ID, resp.Text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send answer",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message, sess *session) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "categories":
		b.handleCategories(message, sess)
	case "category":
		b.handleCategory(message, sess)
	case "new":
		b.mu.Lock()
		sess.chatID = 0
		b.mu.Unlock()
		b.sendMessage(message.Chat.ID, "Yeni bir sohbet başlatıldı.")
	case "history":
		b.handleHistory(ctx, message, sess)
	case "save":
		b.handleSave(ctx, message, sess)
	default:
		b.sendMessage(message.Chat.ID, "Bilinmeyen komut. Komutları görmek için /help yazın.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Merhaba! 👋
Sağlık, bilim, teknoloji ve yapay zeka hakkındaki sorularınızı yanıtlıyorum.

Bir kategori seçin (/categories) ve sorunuzu yazın.
Tüm komutlar için /help yazın.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Komutlar:
/start - Botu başlat
/help - Bu yardım mesajını göster
/categories - Kategorileri listele
/category <id> - Kategori seç (ör. /category technology)
/new - Yeni sohbet başlat
/history - Son sohbetlerini göster
/save [metin] - Son yanıtı ya da verilen metni kaydet

Kategori dışı bir soru sorarsanız sizi doğru kategoriye yönlendiririm.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleCategories(message *tgbotapi.Message, sess *session) {
	b.mu.Lock()
	current := sess.category
	b.mu.Unlock()

	response := "*Kategoriler:*\n"
	for _, def := range classifier.All() {
		line := fmt.Sprintf("%s %s \\(/category %s\\)", def.Emoji, escapeMarkdown(def.Name), escapeMarkdown(string(def.ID)))
		if def.ID == current {
			line += " ✅"
		}
		response += line + "\n"
	}

	b.sendMarkdown(message.Chat.ID, response)
}

func (b *Bot) handleCategory(message *tgbotapi.Message, sess *session) {
	arg := strings.TrimSpace(message.CommandArguments())
	category, ok := classifier.Parse(arg)
	if arg == "" || !ok {
		b.sendMessage(message.Chat.ID, "Geçersiz kategori. Seçenekler için /categories yazın.")
		return
	}

	b.mu.Lock()
	sess.category = category
	b.mu.Unlock()

	def, _ := classifier.Lookup(category)
	b.sendMessage(message.Chat.ID, fmt.Sprintf("%s Kategori: %s", def.Emoji, def.Name))
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message, sess *session) {
	chats, err := b.chats.History(ctx, sess.userID)
	if err != nil {
		b.logger.Error("Failed to get chat history",
			zap.Error(err),
			zap.Int64("user_id", sess.userID))
		b.sendErrorMessage(message.Chat.ID, "Sohbet geçmişi alınırken bir hata oluştu.")
		return
	}

	if len(chats) == 0 {
		b.sendMessage(message.Chat.ID, "Henüz bir sohbetiniz yok.")
		return
	}
	if len(chats) > historyLimit {
		chats = chats[:historyLimit]
	}

	response := "*Son sohbetleriniz:*\n\n"
	for _, c := range chats {
		response += fmt.Sprintf("*%s*\n", escapeMarkdown(c.Title))
		if n := len(c.Messages); n > 0 {
			last := models.DeriveTitle(c.Messages[n-1].Content)
			response += fmt.Sprintf("_%s_\n", escapeMarkdown(last))
		}
		response += fmt.Sprintf("%d mesaj\n\n", len(c.Messages))
	}

	b.sendMarkdown(message.Chat.ID, response)
}

func (b *Bot) handleSave(ctx context.Context, message *tgbotapi.Message, sess *session) {
	content := strings.TrimSpace(message.CommandArguments())
	if content == "" {
		b.mu.Lock()
		content = sess.lastAnswer
		b.mu.Unlock()
	}

	saved, err := b.chats.SaveResponse(ctx, sess.userID, content)
	if errors.Is(err, chat.ErrEmptyContent) {
		b.sendMessage(message.Chat.ID, "Kaydedilecek bir yanıt yok.")
		return
	}
	if err != nil {
		b.logger.Error("Failed to save response",
			zap.Error(err),
			zap.Int64("user_id", sess.userID))
		b.sendErrorMessage(message.Chat.ID, "Yanıt kaydedilemedi. Lütfen tekrar deneyin.")
		return
	}

	b.sendMessage(message.Chat.ID, "Yanıt başarıyla kaydedildi: "+saved.Title)
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
