package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/auth"
	"github.com/xaenox/askbot/internal/chat"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.Register(r.Context(),
		r.FormValue("username"), r.FormValue("email"), r.FormValue("password"))
	switch {
	case errors.Is(err, auth.ErrValidation):
		s.reject(w, r, http.StatusBadRequest, err.Error(), err)
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		s.reject(w, r, http.StatusConflict, "Bu kullanıcı adı veya e-posta zaten kayıtlı", err)
		return
	case err != nil:
		s.logger.Error("Failed to register user", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Kayıt başarılı! Lütfen giriş yapın.",
		"user":    newUserView(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	session, err := s.accounts.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.reject(w, r, http.StatusUnauthorized, "Geçersiz kullanıcı adı veya şifre", err)
		return
	}
	if err != nil {
		s.logger.Error("Failed to log in", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token": session.Token,
		"user":  newUserView(session.User),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Çıkış yapıldı"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var chatID int64
	if raw := strings.TrimSpace(r.FormValue("chat_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			s.reject(w, r, http.StatusBadRequest, "Geçersiz sohbet ID", err)
			return
		}
		chatID = id
	}

	resp, err := s.chats.Send(r.Context(), chat.Request{
		UserID:   userID,
		Message:  r.FormValue("message"),
		Category: r.FormValue("category"),
		ChatID:   chatID,
	})
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		s.reject(w, r, http.StatusBadRequest, "Mesaj boş olamaz", err)
		return
	case errors.Is(err, chat.ErrUnknownCategory):
		s.reject(w, r, http.StatusBadRequest, "Geçersiz kategori", err)
		return
	case errors.Is(err, chat.ErrInvalidChat):
		s.reject(w, r, http.StatusBadRequest, "Geçersiz sohbet ID", err)
		return
	case err != nil:
		s.logger.Error("Chat request failed",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("request_id", requestIDFrom(r.Context())))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"response": resp.Text,
		"chat_id":  resp.ChatID,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	chats, err := s.chats.History(r.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to load chat history", zap.Error(err), zap.Int64("user_id", userID))
		s.writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Server error",
			Message: "Sohbet geçmişi alınırken bir hata oluştu",
		})
		return
	}

	views := make([]chatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, newChatView(c))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"chats": views})
}

// handleSavedResponses lists the caller's saved responses, or deletes one
// when an id query parameter is present.
func (s *Server) handleSavedResponses(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("id") {
		s.handleDeleteSavedResponse(w, r)
		return
	}

	userID, _ := auth.UserID(r.Context())
	list, err := s.chats.SavedResponses(r.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to list saved responses", zap.Error(err), zap.Int64("user_id", userID))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]savedView, 0, len(list))
	for _, item := range list {
		views = append(views, newSavedView(item))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSaveResponse(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	saved, err := s.chats.SaveResponse(r.Context(), userID, r.FormValue("content"))
	if errors.Is(err, chat.ErrEmptyContent) {
		s.reject(w, r, http.StatusBadRequest, "İçerik boş olamaz", err)
		return
	}
	if err != nil {
		s.logger.Error("Failed to save response", zap.Error(err), zap.Int64("user_id", userID))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Yanıt başarıyla kaydedildi",
		"response": newSavedView(saved),
	})
}

func (s *Server) handleDeleteSavedResponse(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		s.reject(w, r, http.StatusNotFound, "Yanıt bulunamadı", err)
		return
	}

	err = s.chats.DeleteSavedResponse(r.Context(), userID, id)
	if errors.Is(err, chat.ErrSavedNotFound) {
		s.reject(w, r, http.StatusNotFound, "Yanıt bulunamadı", err)
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete saved response",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Int64("saved_id", id))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Yanıt başarıyla silindi"})
}
