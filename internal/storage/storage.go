package storage

import (
	"context"
	"errors"

	"github.com/xaenox/askbot/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or is not visible to the caller.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("record already exists")
)

// Repository is the set of reads and writes available both on a Storage and
// inside one of its transactions.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id int64) (*models.Chat, error)
	// ListChats returns the user's chats newest first, each with its messages oldest first.
	ListChats(ctx context.Context, userID int64) ([]*models.Chat, error)
	AddMessage(ctx context.Context, msg *models.Message) error

	CreateSavedResponse(ctx context.Context, resp *models.SavedResponse) error
	// ListSavedResponses returns the user's saved responses newest first.
	ListSavedResponses(ctx context.Context, userID int64) ([]*models.SavedResponse, error)
	// DeleteSavedResponse returns ErrNotFound unless id exists and belongs to userID.
	DeleteSavedResponse(ctx context.Context, userID, id int64) error
}

type Storage interface {
	Repository

	// WithTx runs fn against a transactional Repository. Writes made through it
	// are committed when fn returns nil and discarded otherwise.
	WithTx(ctx context.Context, fn func(Repository) error) error
	Close() error
}
