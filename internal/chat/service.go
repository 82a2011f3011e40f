// Package chat runs a user's question through classification, generation and persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/classifier"
	"github.com/xaenox/askbot/internal/generator"
	"github.com/xaenox/askbot/internal/models"
	"github.com/xaenox/askbot/internal/storage"
)

var (
	ErrEmptyMessage    = errors.New("message is required")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidChat     = errors.New("invalid chat id")
	ErrEmptyContent    = errors.New("content is required")
	ErrSavedNotFound   = errors.New("saved response not found")
)

// Responder produces a reply for a composed prompt.
type Responder interface {
	Generate(ctx context.Context, prompt string) generator.Reply
}

// Request is one question from a user. A zero ChatID starts a new chat.
type Request struct {
	UserID   int64
	Message  string
	Category string
	ChatID   int64
}

// Response is what the user gets back.
type Response struct {
	Text   string
	ChatID int64
	// Redirect is set when the question belongs to another category and no model was called.
	Redirect bool
	// Generated is set when Text came from the model rather than the fallback or redirect text.
	Generated bool
	Reason    generator.FailureReason
}

type Service struct {
	store      storage.Storage
	classifier classifier.Classifier
	responder  Responder
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(store storage.Storage, clf classifier.Classifier, responder Responder, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		classifier: clf,
		responder:  responder,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Send answers req and records the exchange. The chat (when new), the user's
// message and the model's answer are written in a single transaction.
func (s *Service) Send(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	category, ok := classifier.Parse(req.Category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, req.Category)
	}
	def, _ := classifier.Lookup(category)

	if req.ChatID != 0 {
		if err := s.checkOwner(ctx, req.UserID, req.ChatID); err != nil {
			return nil, err
		}
	}

	asked := s.now()
	userMsg := &models.Message{Content: req.Message, CreatedAt: asked}
	resp := &Response{}
	var botMsg *models.Message

	verdict := s.classifier.Check(req.Message, category)
	if verdict.Mismatch {
		s.logger.Info("Question belongs to another category",
			zap.Int64("user_id", req.UserID),
			zap.String("category", string(category)),
			zap.String("detected", string(verdict.Detected.ID)),
			zap.Int("matches", verdict.Best.Count))
		resp.Text = classifier.Guidance(verdict.Detected)
		resp.Redirect = true
	} else {
		reply := s.responder.Generate(ctx, generator.ComposePrompt(def.Context, req.Message))
		resp.Text = reply.Text
		resp.Generated = reply.Generated()
		resp.Reason = reply.Reason
		if reply.Generated() {
			botMsg = &models.Message{Content: reply.Text, IsBot: true, CreatedAt: s.now()}
		}
	}

	err := s.store.WithTx(ctx, func(tx storage.Repository) error {
		chatID := req.ChatID
		if chatID == 0 {
			chat := &models.Chat{UserID: req.UserID, Title: models.ChatTitle(asked), CreatedAt: asked}
			if err := tx.CreateChat(ctx, chat); err != nil {
				return fmt.Errorf("create chat: %w", err)
			}
			chatID = chat.ID
		}

		userMsg.ChatID = chatID
		if err := tx.AddMessage(ctx, userMsg); err != nil {
			return fmt.Errorf("save user message: %w", err)
		}
		if botMsg != nil {
			botMsg.ChatID = chatID
			if err := tx.AddMessage(ctx, botMsg); err != nil {
				return fmt.Errorf("save bot message: %w", err)
			}
		}
		resp.ChatID = chatID
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save conversation",
			zap.Error(err),
			zap.Int64("user_id", req.UserID),
			zap.Int64("chat_id", req.ChatID))
		return nil, err
	}

	return resp, nil
}

func (s *Service) checkOwner(ctx context.Context, userID, chatID int64) error {
	chat, err := s.store.GetChat(ctx, chatID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrInvalidChat
	case err != nil:
		return fmt.Errorf("get chat: %w", err)
	case chat.UserID != userID:
		s.logger.Warn("Chat belongs to another user",
			zap.Int64("user_id", userID),
			zap.Int64("chat_id", chatID))
		return ErrInvalidChat
	}
	return nil
}

// History returns the user's chats newest first with messages oldest first.
func (s *Service) History(ctx context.Context, userID int64) ([]*models.Chat, error) {
	chats, err := s.store.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// SaveResponse stores content for the user under a title derived from it.
func (s *Service) SaveResponse(ctx context.Context, userID int64, content string) (*models.SavedResponse, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	saved := &models.SavedResponse{
		UserID:    userID,
		Content:   content,
		Title:     models.DeriveTitle(content),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSavedResponse(ctx, saved); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	return saved, nil
}

func (s *Service) SavedResponses(ctx context.Context, userID int64) ([]*models.SavedResponse, error) {
	list, err := s.store.ListSavedResponses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved responses: %w", err)
	}
	return list, nil
}

func (s *Service) DeleteSavedResponse(ctx context.Context, userID, id int64) error {
	err := s.store.DeleteSavedResponse(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrSavedNotFound
	}
	if err != nil {
		return fmt.Errorf("delete saved response: %w", err)
	}
	return nil
}
