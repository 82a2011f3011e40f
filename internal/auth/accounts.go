package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xaenox/askbot/internal/models"
	"github.com/xaenox/askbot/internal/storage"
)

var (
	// ErrValidation wraps every registration input problem.
	ErrValidation = errors.New("invalid registration")
	// ErrUsernameTaken is returned when the username or email is already registered.
	ErrUsernameTaken = errors.New("username or email already registered")
	// ErrExternalConflict is returned when an external identity's username is held by a password account.
	ErrExternalConflict = errors.New("external identity is held by a registered account")
)

const (
	minUsernameLength = 4
	maxUsernameLength = 20
	minPasswordLength = 6
	maxEmailLength    = 120

	// ExternalUsernamePrefix marks usernames owned by the Telegram front-end. Register refuses it.
	ExternalUsernamePrefix = "tg_"
	externalEmailDomain    = "external.invalid"
)

// TelegramUsername is the store username of a Telegram account.
func TelegramUsername(telegramID int64) string {
	return ExternalUsernamePrefix + strconv.FormatInt(telegramID, 10)
}

func isExternalUsername(username string) bool {
	return strings.HasPrefix(strings.ToLower(username), ExternalUsernamePrefix)
}

func externalEmail(username string) string {
	return username + "@" + externalEmailDomain
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Accounts registers users and logs them in.
type Accounts struct {
	store  storage.Repository
	tokens *Tokens
	logger *zap.Logger
}

func NewAccounts(store storage.Repository, tokens *Tokens, logger *zap.Logger) *Accounts {
	return &Accounts{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

func (a *Accounts) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be %d-%d characters", ErrValidation, minUsernameLength, maxUsernameLength)
	}
	if isExternalUsername(username) {
		return nil, fmt.Errorf("%w: usernames starting with %q are reserved", ErrValidation, ExternalUsernamePrefix)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	email = addr.Address
	if len(email) > maxEmailLength {
		return nil, fmt.Errorf("%w: email must be at most %d characters", ErrValidation, maxEmailLength)
	}
	if strings.HasSuffix(strings.ToLower(email), "@"+externalEmailDomain) {
		return nil, fmt.Errorf("%w: email domain %s is reserved", ErrValidation, externalEmailDomain)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	a.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (a *Accounts) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := a.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// EnsureExternalUser returns the external user named username, creating it
// without a password when absent. Such users cannot log in through Login, and
// a password account holding the name is never handed out.
func (a *Accounts) EnsureExternalUser(ctx context.Context, username string) (*models.User, error) {
	if !isExternalUsername(username) {
		return nil, fmt.Errorf("%w: %q is not an external username", ErrValidation, username)
	}

	user, err := a.store.GetUserByUsername(ctx, username)
	if err == nil {
		return a.checkExternal(user)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user = &models.User{Username: username, Email: externalEmail(username)}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Created concurrently by another update.
		existing, err := a.store.GetUserByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		return a.checkExternal(existing)
	}
	return user, nil
}

func (a *Accounts) checkExternal(user *models.User) (*models.User, error) {
	if user.PasswordHash != "" || user.Email != externalEmail(user.Username) {
		a.logger.Warn("External username held by a password account",
			zap.Int64("user_id", user.ID),
			zap.String("username", user.Username))
		return nil, ErrExternalConflict
	}
	return user, nil
}
