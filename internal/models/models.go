package models

import (
	"time"
	"unicode/utf8"
)

// TimeLayout is the timestamp format used in API payloads.
const TimeLayout = "2006-01-02 15:04:05"

// TitleLength is the number of characters kept from a saved response's content in its title.
const TitleLength = 50

// User is an account that owns chats and saved responses.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chat is a conversation owned by a single user.
type Chat struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	Messages  []*Message `json:"messages,omitempty"`
}

// Message is one entry of a chat. Messages are append-only.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Content   string    `json:"content"`
	IsBot     bool      `json:"is_bot"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedResponse is a piece of text a user kept for later.
type SavedResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// DeriveTitle returns the first TitleLength characters of content,
// followed by "..." when anything was cut off.
func DeriveTitle(content string) string {
	if utf8.RuneCountInString(content) <= TitleLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:TitleLength]) + "..."
}

// ChatTitle is the default title of a chat started at t.
func ChatTitle(t time.Time) string {
	return "Sohbet " + t.Format("2006-01-02 15:04")
}
