package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/askbot/internal/models"
)

type MemoryStorage struct {
	mu    sync.RWMutex
	state *memState
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: newMemState()}
}

type memState struct {
	users    map[int64]*models.User
	chats    map[int64]*models.Chat
	messages map[int64][]*models.Message
	saved    map[int64]*models.SavedResponse

	lastUserID    int64
	lastChatID    int64
	lastMessageID int64
	lastSavedID   int64
}

func newMemState() *memState {
	return &memState{
		users:    make(map[int64]*models.User),
		chats:    make(map[int64]*models.Chat),
		messages: make(map[int64][]*models.Message),
		saved:    make(map[int64]*models.SavedResponse),
	}
}

// clone copies the maps. Records are never mutated after insertion, so they are shared.
func (st *memState) clone() *memState {
	c := *st
	c.users = make(map[int64]*models.User, len(st.users))
	for k, v := range st.users {
		c.users[k] = v
	}
	c.chats = make(map[int64]*models.Chat, len(st.chats))
	for k, v := range st.chats {
		c.chats[k] = v
	}
	c.messages = make(map[int64][]*models.Message, len(st.messages))
	for k, v := range st.messages {
		c.messages[k] = append([]*models.Message(nil), v...)
	}
	c.saved = make(map[int64]*models.SavedResponse, len(st.saved))
	for k, v := range st.saved {
		c.saved[k] = v
	}
	return &c
}

// User methods
func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createUser(user)
}

func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getUser(id)
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getUserByUsername(username)
}

// Chat methods
func (s *MemoryStorage) CreateChat(ctx context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createChat(chat)
}

func (s *MemoryStorage) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getChat(id)
}

func (s *MemoryStorage) ListChats(ctx context.Context, userID int64) ([]*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listChats(userID), nil
}

func (s *MemoryStorage) AddMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.addMessage(msg)
}

// Saved response methods
func (s *MemoryStorage) CreateSavedResponse(ctx context.Context, resp *models.SavedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createSaved(resp)
}

func (s *MemoryStorage) ListSavedResponses(ctx context.Context, userID int64) ([]*models.SavedResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listSaved(userID), nil
}

func (s *MemoryStorage) DeleteSavedResponse(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.deleteSaved(userID, id)
}

// WithTx holds the write lock for the whole of fn and works on a copy of the state.
func (s *MemoryStorage) WithTx(ctx context.Context, fn func(Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&memTx{state: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

type memTx struct {
	state *memState
}

func (t *memTx) CreateUser(ctx context.Context, user *models.User) error {
	return t.state.createUser(user)
}

func (t *memTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return t.state.getUser(id)
}

func (t *memTx) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return t.state.getUserByUsername(username)
}

func (t *memTx) CreateChat(ctx context.Context, chat *models.Chat) error {
	return t.state.createChat(chat)
}

func (t *memTx) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	return t.state.getChat(id)
}

func (t *memTx) ListChats(ctx context.Context, userID int64) ([]*models.Chat, error) {
	return t.state.listChats(userID), nil
}

func (t *memTx) AddMessage(ctx context.Context, msg *models.Message) error {
	return t.state.addMessage(msg)
}

func (t *memTx) CreateSavedResponse(ctx context.Context, resp *models.SavedResponse) error {
	return t.state.createSaved(resp)
}

func (t *memTx) ListSavedResponses(ctx context.Context, userID int64) ([]*models.SavedResponse, error) {
	return t.state.listSaved(userID), nil
}

func (t *memTx) DeleteSavedResponse(ctx context.Context, userID, id int64) error {
	return t.state.deleteSaved(userID, id)
}

func (st *memState) createUser(user *models.User) error {
	for _, u := range st.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}
	st.lastUserID++
	user.ID = st.lastUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	st.users[user.ID] = &stored
	return nil
}

func (st *memState) getUser(id int64) (*models.User, error) {
	u, ok := st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (st *memState) getUserByUsername(username string) (*models.User, error) {
	for _, u := range st.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (st *memState) createChat(chat *models.Chat) error {
	if _, ok := st.users[chat.UserID]; !ok {
		return ErrNotFound
	}
	st.lastChatID++
	chat.ID = st.lastChatID
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}
	stored := *chat
	stored.Messages = nil
	st.chats[chat.ID] = &stored
	return nil
}

func (st *memState) getChat(id int64) (*models.Chat, error) {
	c, ok := st.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (st *memState) listChats(userID int64) []*models.Chat {
	chats := make([]*models.Chat, 0)
	for _, c := range st.chats {
		if c.UserID != userID {
			continue
		}
		out := *c
		out.Messages = make([]*models.Message, 0, len(st.messages[c.ID]))
		for _, m := range st.messages[c.ID] {
			msg := *m
			out.Messages = append(out.Messages, &msg)
		}
		chats = append(chats, &out)
	}
	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].CreatedAt.Equal(chats[j].CreatedAt) {
			return chats[i].CreatedAt.After(chats[j].CreatedAt)
		}
		return chats[i].ID > chats[j].ID
	})
	return chats
}

// addMessage appends in insertion order, which is the history order of a chat.
func (st *memState) addMessage(msg *models.Message) error {
	if _, ok := st.chats[msg.ChatID]; !ok {
		return ErrNotFound
	}
	st.lastMessageID++
	msg.ID = st.lastMessageID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	stored := *msg
	st.messages[msg.ChatID] = append(st.messages[msg.ChatID], &stored)
	return nil
}

func (st *memState) createSaved(resp *models.SavedResponse) error {
	if _, ok := st.users[resp.UserID]; !ok {
		return ErrNotFound
	}
	st.lastSavedID++
	resp.ID = st.lastSavedID
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	stored := *resp
	st.saved[resp.ID] = &stored
	return nil
}

func (st *memState) listSaved(userID int64) []*models.SavedResponse {
	out := make([]*models.SavedResponse, 0)
	for _, r := range st.saved {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (st *memState) deleteSaved(userID, id int64) error {
	r, ok := st.saved[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}
	delete(st.saved, id)
	return nil
}
