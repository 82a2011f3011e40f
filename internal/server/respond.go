package server

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/models"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type messageView struct {
	Content   string `json:"content"`
	IsBot     bool   `json:"is_bot"`
	CreatedAt string `json:"created_at"`
}

type chatView struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	CreatedAt string        `json:"created_at"`
	Messages  []messageView `json:"messages"`
}

type savedView struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type userView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func newChatView(c *models.Chat) chatView {
	v := chatView{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC().Format(models.TimeLayout),
		Messages:  make([]messageView, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		v.Messages = append(v.Messages, messageView{
			Content:   m.Content,
			IsBot:     m.IsBot,
			CreatedAt: m.CreatedAt.UTC().Format(models.TimeLayout),
		})
	}
	return v
}

func newSavedView(r *models.SavedResponse) savedView {
	return savedView{
		ID:        r.ID,
		Content:   r.Content,
		Title:     r.Title,
		CreatedAt: r.CreatedAt.UTC().Format(models.TimeLayout),
	}
}

func newUserView(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.UTC().Format(models.TimeLayout),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

// reject logs a client error before answering with it.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.logger.Info("Rejected request",
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestIDFrom(r.Context())))
	s.writeError(w, status, msg)
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Unauthorized request",
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestIDFrom(r.Context())))
	s.writeJSON(w, http.StatusUnauthorized, errorBody{
		Error:   "Unauthorized",
		Message: "Bu işlem için giriş yapmanız gerekiyor",
	})
}
