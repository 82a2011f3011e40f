package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/askbot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// dialect captures what differs between the supported SQL databases.
type dialect struct {
	name          string
	migration     string
	numberedBinds bool
	isDuplicate   func(error) bool
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStorage is a Storage backed by database/sql.
type SQLStorage struct {
	*sqlRepo
	db     *sql.DB
	logger *zap.Logger
}

func newSQLStorage(db *sql.DB, d dialect, logger *zap.Logger) (*SQLStorage, error) {
	s := &SQLStorage{
		sqlRepo: &sqlRepo{q: db, d: d},
		db:      db,
		logger:  logger,
	}

	if err := s.initializeSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return s, nil
}

func (s *SQLStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile(s.d.migration)
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	s.logger.Info("Database schema ready", zap.String("dialect", s.d.name))
	return nil
}

func (s *SQLStorage) WithTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqlRepo{q: tx, d: s.d}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

type sqlRepo struct {
	q querier
	d dialect
}

// bind rewrites ? placeholders to $1, $2, ... when the dialect needs it.
func (r *sqlRepo) bind(query string) string {
	if !r.d.numberedBinds {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func toEpoch(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}

func fromEpoch(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (r *sqlRepo) CreateUser(ctx context.Context, user *models.User) error {
	created := toEpoch(user.CreatedAt)
	err := r.q.QueryRowContext(ctx, r.bind(insertUser),
		user.Username,
		user.Email,
		user.PasswordHash,
		created,
	).Scan(&user.ID)
	if err != nil {
		if r.d.isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	user.CreatedAt = fromEpoch(created)
	return nil
}

func (r *sqlRepo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx, r.bind(selectUserByID), id))
}

func (r *sqlRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx, r.bind(selectUserByUsername), username))
}

func (r *sqlRepo) scanUser(row *sql.Row) (*models.User, error) {
	var (
		user    models.User
		created int64
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	user.CreatedAt = fromEpoch(created)
	return &user, nil
}

func (r *sqlRepo) CreateChat(ctx context.Context, chat *models.Chat) error {
	created := toEpoch(chat.CreatedAt)
	err := r.q.QueryRowContext(ctx, r.bind(insertChat),
		chat.UserID,
		chat.Title,
		created,
	).Scan(&chat.ID)
	if err != nil {
		return fmt.Errorf("error creating chat: %w", err)
	}
	chat.CreatedAt = fromEpoch(created)
	return nil
}

func (r *sqlRepo) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	var (
		chat    models.Chat
		created int64
	)
	err := r.q.QueryRowContext(ctx, r.bind(selectChatByID), id).
		Scan(&chat.ID, &chat.UserID, &chat.Title, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("error querying chat: %w", err)
	}
	chat.CreatedAt = fromEpoch(created)
	return &chat, nil
}

func (r *sqlRepo) ListChats(ctx context.Context, userID int64) ([]*models.Chat, error) {
	rows, err := r.q.QueryContext(ctx, r.bind(selectChatsByUser), userID)
	if err != nil {
		return nil, fmt.Errorf("error querying chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*models.Chat, 0)
	byID := make(map[int64]*models.Chat)
	for rows.Next() {
		var (
			chat    models.Chat
			created int64
		)
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &created); err != nil {
			return nil, fmt.Errorf("error scanning chat: %w", err)
		}
		chat.CreatedAt = fromEpoch(created)
		chat.Messages = make([]*models.Message, 0)
		chats = append(chats, &chat)
		byID[chat.ID] = &chat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	// Release the connection before the second query; SQLite runs with just one.
	rows.Close()
	if len(chats) == 0 {
		return chats, nil
	}

	msgRows, err := r.q.QueryContext(ctx, r.bind(selectMessagesByUser), userID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var (
			msg     models.Message
			created int64
		)
		if err := msgRows.Scan(&msg.ID, &msg.ChatID, &msg.Content, &msg.IsBot, &created); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		msg.CreatedAt = fromEpoch(created)
		if chat, ok := byID[msg.ChatID]; ok {
			chat.Messages = append(chat.Messages, &msg)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return chats, nil
}

func (r *sqlRepo) AddMessage(ctx context.Context, msg *models.Message) error {
	created := toEpoch(msg.CreatedAt)
	err := r.q.QueryRowContext(ctx, r.bind(insertMessage),
		msg.ChatID,
		msg.Content,
		msg.IsBot,
		created,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("error adding message: %w", err)
	}
	msg.CreatedAt = fromEpoch(created)
	return nil
}

func (r *sqlRepo) CreateSavedResponse(ctx context.Context, resp *models.SavedResponse) error {
	created := toEpoch(resp.CreatedAt)
	err := r.q.QueryRowContext(ctx, r.bind(insertSavedResponse),
		resp.UserID,
		resp.Content,
		resp.Title,
		created,
	).Scan(&resp.ID)
	if err != nil {
		return fmt.Errorf("error creating saved response: %w", err)
	}
	resp.CreatedAt = fromEpoch(created)
	return nil
}

func (r *sqlRepo) ListSavedResponses(ctx context.Context, userID int64) ([]*models.SavedResponse, error) {
	rows, err := r.q.QueryContext(ctx, r.bind(selectSavedResponsesByUser), userID)
	if err != nil {
		return nil, fmt.Errorf("error querying saved responses: %w", err)
	}
	defer rows.Close()

	out := make([]*models.SavedResponse, 0)
	for rows.Next() {
		var (
			resp    models.SavedResponse
			created int64
		)
		if err := rows.Scan(&resp.ID, &resp.UserID, &resp.Content, &resp.Title, &created); err != nil {
			return nil, fmt.Errorf("error scanning saved response: %w", err)
		}
		resp.CreatedAt = fromEpoch(created)
		out = append(out, &resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saved responses: %w", err)
	}
	return out, nil
}

func (r *sqlRepo) DeleteSavedResponse(ctx context.Context, userID, id int64) error {
	result, err := r.q.ExecContext(ctx, r.bind(deleteSavedResponse), id, userID)
	if err != nil {
		return fmt.Errorf("error deleting saved response: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
