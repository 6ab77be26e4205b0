package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roomcast/server/internal/store"
)

// Schema applied on startup. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	online        BOOLEAN NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	type       TEXT NOT NULL DEFAULT 'public',
	owner_id   INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    INTEGER NOT NULL,
	receiver_id  INTEGER,
	room         TEXT,
	content      TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'text',
	file_url     TEXT,
	file_name    TEXT,
	read         BOOLEAN NOT NULL DEFAULT 0,
	read_at      DATETIME,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (receiver_id) REFERENCES users(id),
	CHECK ((room IS NULL) != (receiver_id IS NULL))
);

CREATE TABLE IF NOT EXISTS message_reactions (
	message_id INTEGER NOT NULL,
	reaction   TEXT NOT NULL,
	user_id    INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (message_id, reaction, user_id),
	FOREIGN KEY (message_id) REFERENCES messages(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_direct ON messages(sender_id, receiver_id, created_at DESC);

INSERT INTO rooms (name, type)
SELECT 'general', 'public'
WHERE NOT EXISTS (SELECT 1 FROM rooms WHERE name = 'general');
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, online, created_at FROM users WHERE id = ?`, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, online, created_at FROM users WHERE username = ?`, username))
}

// SetUserOnline updates a user's durable online flag.
func (s *SQLiteStore) SetUserOnline(ctx context.Context, userID int64, online bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET online = ? WHERE id = ?`, online, userID); err != nil {
		return fmt.Errorf("update online flag: %w", err)
	}
	return nil
}

// ListOnlineUsers lists users whose online flag is set.
func (s *SQLiteStore) ListOnlineUsers(ctx context.Context) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, online, created_at FROM users WHERE online = 1 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("query online users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var u store.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Online, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Online, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// ==== RoomStore implementation ====

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, roomType store.RoomType, ownerID *int64) (*store.Room, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (name, type, owner_id) VALUES (?, ?, ?)`, name, string(roomType), ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return s.getRoomByID(ctx, id)
}

// GetRoomByName retrieves a room by name.
func (s *SQLiteStore) GetRoomByName(ctx context.Context, name string) (*store.Room, error) {
	return s.scanRoom(s.db.QueryRowContext(ctx,
		`SELECT id, name, type, owner_id, created_at FROM rooms WHERE name = ?`, name))
}

// ListRooms lists all rooms.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, owner_id, created_at FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var r store.Room
		var ownerID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &ownerID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		if ownerID.Valid {
			r.OwnerID = &ownerID.Int64
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) getRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	return s.scanRoom(s.db.QueryRowContext(ctx,
		`SELECT id, name, type, owner_id, created_at FROM rooms WHERE id = ?`, id))
}

func (s *SQLiteStore) scanRoom(row *sql.Row) (*store.Room, error) {
	var r store.Room
	var ownerID sql.NullInt64
	err := row.Scan(&r.ID, &r.Name, &r.Type, &ownerID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan room: %w", err)
	}
	if ownerID.Valid {
		r.OwnerID = &ownerID.Int64
	}
	return &r, nil
}

// ==== MessageStore implementation ====

const messageColumns = `
	m.id, m.sender_id, u.username, m.receiver_id, COALESCE(m.room, ''),
	m.content, m.message_type, COALESCE(m.file_url, ''), COALESCE(m.file_name, ''),
	m.read, m.read_at, m.created_at`

// SaveMessage persists a message and returns its durable id.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) (int64, error) {
	var room, fileURL, fileName any
	if msg.Room != "" {
		room = msg.Room
	}
	if msg.FileURL != "" {
		fileURL = msg.FileURL
	}
	if msg.FileName != "" {
		fileName = msg.FileName
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, room, content, message_type, file_url, file_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.SenderID, msg.ReceiverID, room, msg.Content, string(msg.Type), fileURL, fileName, msg.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// GetMessage retrieves a message with its reactions.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?`, id)

	msg, err := scanMessage(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT reaction, user_id FROM message_reactions WHERE message_id = ? ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reaction string
		var userID int64
		if err := rows.Scan(&reaction, &userID); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		if msg.Reactions == nil {
			msg.Reactions = make(map[string][]int64)
		}
		msg.Reactions[reaction] = append(msg.Reactions[reaction], userID)
	}
	return msg, rows.Err()
}

// MarkMessageRead sets the read flag and timestamp once.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id int64) (*store.Message, bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = 1, read_at = CURRENT_TIMESTAMP WHERE id = ? AND read = 0`, id)
	if err != nil {
		return nil, false, fmt.Errorf("mark read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return msg, affected > 0, nil
}

// AddReaction inserts (reaction, userID) into the message's reaction set.
func (s *SQLiteStore) AddReaction(ctx context.Context, id int64, reaction string, userID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, store.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check message: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reactions (message_id, reaction, user_id)
		VALUES (?, ?, ?)`, id, reaction, userID)
	if err != nil {
		return false, fmt.Errorf("insert reaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListRoomMessages retrieves the most recent messages of a room in
// chronological order.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, room string, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.room = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query room messages: %w", err)
	}
	return collectMessages(rows)
}

// ListDirectMessages retrieves the most recent messages between two users in
// chronological order.
func (s *SQLiteStore) ListDirectMessages(ctx context.Context, userA, userB int64, limit int) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE (m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, userA, userB, userB, userA, limit)
	if err != nil {
		return nil, fmt.Errorf("query direct messages: %w", err)
	}
	return collectMessages(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var receiverID sql.NullInt64
	var readAt sql.NullTime
	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.SenderName, &receiverID, &msg.Room,
		&msg.Content, &msg.Type, &msg.FileURL, &msg.FileName,
		&msg.Read, &readAt, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if receiverID.Valid {
		msg.ReceiverID = &receiverID.Int64
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return &msg, nil
}

func collectMessages(rows *sql.Rows) ([]*store.Message, error) {
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
