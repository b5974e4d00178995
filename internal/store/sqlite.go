package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when the referenced record does not exist, or
	// exists under a different owner.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientBalance is returned by SpendToken when the guarded
	// decrement would take the balance below zero. Nothing is mutated.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrOrderProcessed is returned by CreditTokensOnce for an order id that
	// has already credited tokens. Nothing is mutated.
	ErrOrderProcessed = errors.New("order already processed")
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps SQLite writes serialized and makes :memory:
	// databases behave across the pool.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        uid TEXT PRIMARY KEY,
        email TEXT UNIQUE NOT NULL,
        display_name TEXT NOT NULL DEFAULT '',
        photo_url TEXT NOT NULL DEFAULT '',
        password_hash TEXT NOT NULL,
        token_balance INTEGER NOT NULL DEFAULT 0 CHECK (token_balance >= 0),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        class_level TEXT NOT NULL,
        subject TEXT NOT NULL,
        start_time TEXT NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (uid)
    );
    CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id);

    CREATE TABLE IF NOT EXISTS qa_pairs (
        session_id TEXT NOT NULL,
        pair_id TEXT NOT NULL,
        ordinal INTEGER NOT NULL,
        question_text TEXT NOT NULL,
        answer TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        uploaded_file_uri TEXT NOT NULL DEFAULT '',
        file_name TEXT NOT NULL DEFAULT '',
        PRIMARY KEY (session_id, pair_id),
        FOREIGN KEY (session_id) REFERENCES sessions (id)
    );

    CREATE TABLE IF NOT EXISTS processed_orders (
        order_id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        package_id TEXT NOT NULL,
        tokens INTEGER NOT NULL,
        processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(ctx context.Context, user *UserProfile) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (uid, email, display_name, photo_url, password_hash, token_balance) VALUES (?, ?, ?, ?, ?, ?)",
		user.UID, user.Email, user.DisplayName, user.PhotoURL, user.PasswordHash, user.TokenBalance)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByUID(ctx context.Context, uid string) (*UserProfile, error) {
	return s.queryUser(ctx, "SELECT uid, email, display_name, photo_url, password_hash, token_balance, created_at FROM users WHERE uid = ?", uid)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*UserProfile, error) {
	return s.queryUser(ctx, "SELECT uid, email, display_name, photo_url, password_hash, token_balance, created_at FROM users WHERE email = ?", email)
}

func (s *SQLiteStore) queryUser(ctx context.Context, query string, arg string) (*UserProfile, error) {
	var user UserProfile
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.UID, &user.Email, &user.DisplayName, &user.PhotoURL,
		&user.PasswordHash, &user.TokenBalance, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE uid = ?", uid)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Token ledger methods

// SpendToken decrements the user's balance by one. The `token_balance >= 1`
// guard lives in the UPDATE itself, so concurrent submissions can never both
// spend the last token: the check happens at write time, not read time.
func (s *SQLiteStore) SpendToken(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance - 1 WHERE uid = ? AND token_balance >= 1", uid)
	if err != nil {
		return fmt.Errorf("failed to spend token: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		user, err := s.GetUserByUID(ctx, uid)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}

// AddTokens unconditionally credits the user's balance.
func (s *SQLiteStore) AddTokens(ctx context.Context, uid string, amount int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance + ? WHERE uid = ?", amount, uid)
	if err != nil {
		return fmt.Errorf("failed to add tokens: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreditTokensOnce records the order id and credits the tokens in one
// transaction. The processed_orders primary key is the check-and-set: a replayed
// notification hits the constraint and reports ErrOrderProcessed with no credit.
func (s *SQLiteStore) CreditTokensOnce(ctx context.Context, orderID, uid, packageID string, tokens int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credit transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO processed_orders (order_id, user_id, package_id, tokens) VALUES (?, ?, ?, ?)",
		orderID, uid, packageID, tokens)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrOrderProcessed
		}
		return fmt.Errorf("failed to record processed order: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET token_balance = token_balance + ? WHERE uid = ?", tokens, uid)
	if err != nil {
		return fmt.Errorf("failed to credit tokens: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Session methods

// SaveSession upserts the session document with merge semantics: the session
// row and every pair present in the value are written, pairs absent from the
// value are preserved. Safe to call repeatedly with the same content.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *ChatSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO sessions (id, user_id, title, class_level, subject, start_time)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            class_level = excluded.class_level,
            subject = excluded.subject,
            start_time = excluded.start_time`,
		session.ID, session.UserID, session.Title, session.ClassLevel, session.Subject, session.StartTime)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	for i := range session.Messages {
		msg := &session.Messages[i]
		_, err = tx.ExecContext(ctx, `
            INSERT INTO qa_pairs (session_id, pair_id, ordinal, question_text, answer, timestamp, uploaded_file_uri, file_name)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(session_id, pair_id) DO UPDATE SET
                ordinal = excluded.ordinal,
                question_text = excluded.question_text,
                answer = excluded.answer,
                timestamp = excluded.timestamp,
                uploaded_file_uri = excluded.uploaded_file_uri,
                file_name = excluded.file_name`,
			session.ID, msg.ID, i, msg.QuestionText, msg.Answer, msg.Timestamp, msg.UploadedFileURI, msg.FileName)
		if err != nil {
			return fmt.Errorf("failed to upsert qa pair: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	var session ChatSession
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, class_level, subject, start_time FROM sessions WHERE id = ?", sessionID).
		Scan(&session.ID, &session.UserID, &session.Title, &session.ClassLevel, &session.Subject, &session.StartTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.Messages, err = s.sessionPairs(ctx, session.ID); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) sessionPairs(ctx context.Context, sessionID string) ([]QAPair, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT pair_id, question_text, answer, timestamp, uploaded_file_uri, file_name
        FROM qa_pairs WHERE session_id = ? ORDER BY ordinal ASC, pair_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query qa pairs: %w", err)
	}
	defer rows.Close()

	var pairs []QAPair
	for rows.Next() {
		var p QAPair
		if err := rows.Scan(&p.ID, &p.QuestionText, &p.Answer, &p.Timestamp, &p.UploadedFileURI, &p.FileName); err != nil {
			return nil, fmt.Errorf("failed to scan qa pair row: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ListSessionsByUser returns the user's sessions in store order. The store
// guarantees no ordering on this query shape; callers sort by start time.
func (s *SQLiteStore) ListSessionsByUser(ctx context.Context, userID string) ([]ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, title, class_level, subject, start_time FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var session ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.ClassLevel, &session.Subject, &session.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	for i := range sessions {
		if sessions[i].Messages, err = s.sessionPairs(ctx, sessions[i].ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM qa_pairs WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete qa pairs: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ? AND user_id = ?", sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// Rolls back the qa_pairs delete: a mismatched owner removes nothing.
		return ErrNotFound
	}
	return tx.Commit()
}

// DeleteUserSessions removes all of a user's sessions as a single batch: the
// transaction either removes every matching row or none.
func (s *SQLiteStore) DeleteUserSessions(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM qa_pairs WHERE session_id IN (SELECT id FROM sessions WHERE user_id = ?)", userID); err != nil {
		return fmt.Errorf("failed to delete qa pairs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return tx.Commit()
}
