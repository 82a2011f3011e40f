package storage

// Queries use ? placeholders; dialects that need numbered ones rebind them.
const (
	insertUser = `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	selectUserByID = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = ?`

	selectUserByUsername = `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = ?`

	insertChat = `
		INSERT INTO chats (user_id, title, created_at)
		VALUES (?, ?, ?)
		RETURNING id`

	selectChatByID = `
		SELECT id, user_id, title, created_at
		FROM chats
		WHERE id = ?`

	selectChatsByUser = `
		SELECT id, user_id, title, created_at
		FROM chats
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`

	selectMessagesByUser = `
		SELECT m.id, m.chat_id, m.content, m.is_bot, m.created_at
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE c.user_id = ?
		ORDER BY m.chat_id, m.created_at, m.id`

	insertMessage = `
		INSERT INTO messages (chat_id, content, is_bot, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	insertSavedResponse = `
		INSERT INTO saved_responses (user_id, content, title, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	selectSavedResponsesByUser = `
		SELECT id, user_id, content, title, created_at
		FROM saved_responses
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`

	deleteSavedResponse = `
		DELETE FROM saved_responses
		WHERE id = ? AND user_id = ?`
)
