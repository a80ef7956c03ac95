package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore reads the bridge's messages database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn, creating the schema when it
// does not exist yet. The schema matches what the bridge writes.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	migration := `
	CREATE TABLE IF NOT EXISTS chats (
		jid TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		last_message_time TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chats_last_message ON chats(last_message_time DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT NOT NULL,
		chat_jid TEXT NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL,
		is_from_me BOOLEAN NOT NULL DEFAULT FALSE,
		media_type TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (id, chat_jid),
		FOREIGN KEY (chat_jid) REFERENCES chats(jid) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_chat_timestamp ON messages(chat_jid, timestamp DESC);
	`
	_, err := db.Exec(migration)
	return err
}

// UpsertChat inserts or updates a chat row.
func (s *SQLiteStore) UpsertChat(ctx context.Context, chat *Chat) error {
	query := `
		INSERT INTO chats (jid, name, last_message_time)
		VALUES (?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = excluded.name,
			last_message_time = excluded.last_message_time
	`
	_, err := s.db.ExecContext(ctx, query, chat.JID, chat.Name, chat.LastActive)
	return err
}

// UpsertMessage inserts or replaces a message row.
func (s *SQLiteStore) UpsertMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT OR REPLACE INTO messages
		(id, chat_jid, sender, content, timestamp, is_from_me, media_type, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ChatJID, msg.Sender, msg.Content, msg.Timestamp, msg.IsFromMe,
		msg.MediaType, msg.Filename,
	)
	return err
}

// SearchContacts finds direct-chat peers whose name or JID matches query.
// Group chats never appear in the result.
func (s *SQLiteStore) SearchContacts(ctx context.Context, query string) ([]Contact, error) {
	sqlQuery := `
		SELECT DISTINCT jid, name
		FROM chats
		WHERE (name LIKE ? OR jid LIKE ?)
		AND jid LIKE '%@s.whatsapp.net'
		ORDER BY name
		LIMIT 20
	`
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, sqlQuery, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.JID, &c.Name); err != nil {
			return nil, err
		}
		c.Phone = phoneFromJID(c.JID)
		if c.Name == "" {
			c.Name = c.Phone
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ListMessages returns messages matching the filter, newest first, joined
// with their chat names.
func (s *SQLiteStore) ListMessages(ctx context.Context, f MessageFilter) ([]Message, error) {
	query := `
		SELECT messages.id, messages.chat_jid, chats.name, messages.sender,
		       messages.content, messages.timestamp, messages.is_from_me, messages.media_type
		FROM messages
		JOIN chats ON messages.chat_jid = chats.jid
	`
	var where []string
	var args []interface{}

	if !f.After.IsZero() {
		where = append(where, "messages.timestamp > ?")
		args = append(args, f.After)
	}
	if !f.Before.IsZero() {
		where = append(where, "messages.timestamp < ?")
		args = append(args, f.Before)
	}
	if f.Sender != "" {
		where = append(where, "messages.sender = ?")
		args = append(args, f.Sender)
	}
	if f.ChatJID != "" {
		where = append(where, "messages.chat_jid = ?")
		args = append(args, f.ChatJID)
	}
	if f.Query != "" {
		where = append(where, "LOWER(messages.content) LIKE LOWER(?)")
		args = append(args, "%"+f.Query+"%")
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY messages.timestamp DESC LIMIT ? OFFSET ?"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Page*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListChats returns chats matching the filter, optionally joined with
// each chat's latest message.
func (s *SQLiteStore) ListChats(ctx context.Context, f ChatFilter) ([]Chat, error) {
	var query string
	if f.IncludeLastMessage {
		query = `
			SELECT chats.jid, chats.name, chats.last_message_time,
			       messages.content, messages.sender, messages.is_from_me
			FROM chats
			LEFT JOIN messages ON messages.chat_jid = chats.jid
			AND messages.timestamp = (SELECT MAX(timestamp) FROM messages WHERE chat_jid = chats.jid)
		`
	} else {
		query = `SELECT chats.jid, chats.name, chats.last_message_time FROM chats`
	}

	var args []interface{}
	if f.Query != "" {
		query += " WHERE (chats.name LIKE ? OR chats.jid LIKE ?)"
		pattern := "%" + f.Query + "%"
		args = append(args, pattern, pattern)
	}

	if f.SortBy == "name" {
		query += " ORDER BY chats.name"
	} else {
		query += " ORDER BY chats.last_message_time DESC"
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Page*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		var lastActive sql.NullTime
		if f.IncludeLastMessage {
			var content, sender sql.NullString
			var fromMe sql.NullBool
			if err := rows.Scan(&chat.JID, &chat.Name, &lastActive, &content, &sender, &fromMe); err != nil {
				return nil, err
			}
			chat.LastMessage = content.String
			chat.LastSender = sender.String
			chat.LastIsFromMe = fromMe.Bool
		} else {
			if err := rows.Scan(&chat.JID, &chat.Name, &lastActive); err != nil {
				return nil, err
			}
		}
		if lastActive.Valid {
			chat.LastActive = lastActive.Time
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// GetChat returns the chat with exactly the given JID.
func (s *SQLiteStore) GetChat(ctx context.Context, jid string, includeLastMessage bool) (*Chat, error) {
	var query string
	if includeLastMessage {
		query = `
			SELECT chats.jid, chats.name, chats.last_message_time,
			       messages.content, messages.sender, messages.is_from_me
			FROM chats
			LEFT JOIN messages ON messages.chat_jid = chats.jid
			AND messages.timestamp = (SELECT MAX(timestamp) FROM messages WHERE chat_jid = chats.jid)
			WHERE chats.jid = ?
		`
	} else {
		query = `SELECT chats.jid, chats.name, chats.last_message_time FROM chats WHERE chats.jid = ?`
	}

	row := s.db.QueryRowContext(ctx, query, jid)

	var chat Chat
	var lastActive sql.NullTime
	var err error
	if includeLastMessage {
		var content, sender sql.NullString
		var fromMe sql.NullBool
		if err = row.Scan(&chat.JID, &chat.Name, &lastActive, &content, &sender, &fromMe); err == nil {
			chat.LastMessage = content.String
			chat.LastSender = sender.String
			chat.LastIsFromMe = fromMe.Bool
		}
	} else {
		err = row.Scan(&chat.JID, &chat.Name, &lastActive)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastActive.Valid {
		chat.LastActive = lastActive.Time
	}
	return &chat, nil
}

// GetMessageContext returns a message and its chronological neighbors
// within the same chat.
func (s *SQLiteStore) GetMessageContext(ctx context.Context, messageID string, before, after int) (*MessageContext, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT messages.id, messages.chat_jid, chats.name, messages.sender,
		       messages.content, messages.timestamp, messages.is_from_me, messages.media_type
		FROM messages
		JOIN chats ON messages.chat_jid = chats.jid
		WHERE messages.id = ?
	`, messageID)

	var msg Message
	if err := row.Scan(&msg.ID, &msg.ChatJID, &msg.ChatName, &msg.Sender, &msg.Content, &msg.Timestamp, &msg.IsFromMe, &msg.MediaType); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	beforeMsgs, err := s.neighbors(ctx, msg.ChatJID, msg.Timestamp, "<", "DESC", before)
	if err != nil {
		return nil, err
	}
	// Returned oldest-first so the context reads chronologically.
	reverseMessages(beforeMsgs)

	afterMsgs, err := s.neighbors(ctx, msg.ChatJID, msg.Timestamp, ">", "ASC", after)
	if err != nil {
		return nil, err
	}

	return &MessageContext{Message: msg, Before: beforeMsgs, After: afterMsgs}, nil
}

func (s *SQLiteStore) neighbors(ctx context.Context, chatJID string, ts time.Time, cmp, order string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT messages.id, messages.chat_jid, chats.name, messages.sender,
		       messages.content, messages.timestamp, messages.is_from_me, messages.media_type
		FROM messages
		JOIN chats ON messages.chat_jid = chats.jid
		WHERE messages.chat_jid = ? AND messages.timestamp %s ?
		ORDER BY messages.timestamp %s
		LIMIT ?
	`, cmp, order)

	rows, err := s.db.QueryContext(ctx, query, chatJID, ts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var msg Message
		err := rows.Scan(&msg.ID, &msg.ChatJID, &msg.ChatName, &msg.Sender, &msg.Content, &msg.Timestamp, &msg.IsFromMe, &msg.MediaType)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func reverseMessages(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

func phoneFromJID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}
