package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteStorage struct {
	db *sql.DB
}

var _ Interface = &SQLiteStorage{}

func NewSQLiteStorage(dbPath string) *SQLiteStorage {
	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		log.Fatalf("❌ Error creating data directory for %s: %v", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("❌ Error opening SQLite DB at %s: %v", dbPath, err)
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS documents (
            hash TEXT PRIMARY KEY,
            book_name TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            text TEXT NOT NULL,
            url TEXT NOT NULL DEFAULT '',
            is_supplemental INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS supplemental_topics (
            hash TEXT NOT NULL,
            user_id INTEGER NOT NULL
        );
        CREATE TABLE IF NOT EXISTS logs (
            log_id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            query TEXT NOT NULL,
            response TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'success',
            category TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_logs_user ON logs (user_id, created_at);
        CREATE TABLE IF NOT EXISTS log_topic_hashes (
            log_id INTEGER NOT NULL,
            topic_hash TEXT NOT NULL
        );
    `)
	if err != nil {
		log.Fatalf("❌ Error creating tables: %v", err)
	}

	return &SQLiteStorage{db: db}
}

// ReplaceCorpus wipes every non-supplemental row and inserts the new batch
// in one transaction. A mid-refresh failure rolls back to the old data set.
// Inserts are no-ops on hash conflict, so re-ingesting an unchanged corpus
// never creates duplicate rows.
func (s *SQLiteStorage) ReplaceCorpus(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE is_supplemental = 0`); err != nil {
		return fmt.Errorf("wipe non-supplemental rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (hash, book_name, title, text, url, is_supplemental)
		 VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT (hash) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err = stmt.ExecContext(ctx, doc.Hash, doc.BookName, doc.Title, doc.Text, doc.URL); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.Hash, err)
		}
	}

	return tx.Commit()
}

// InsertTopic stores one user-submitted document. The row is flagged
// supplemental so corpus refreshes never wipe it. Conflict on hash is a
// no-op: the first-inserted row wins.
func (s *SQLiteStorage) InsertTopic(ctx context.Context, doc Document, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO documents (hash, book_name, title, text, url, is_supplemental)
		 VALUES (?, ?, ?, ?, ?, 1)
		 ON CONFLICT (hash) DO NOTHING`,
		doc.Hash, doc.BookName, doc.Title, doc.Text, doc.URL); err != nil {
		return fmt.Errorf("insert topic %s: %w", doc.Hash, err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO supplemental_topics (hash, user_id) VALUES (?, ?)`,
		doc.Hash, userID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) DeleteByHashes(ctx context.Context, hashes []string) (int64, error) {
	if len(hashes) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(hashes)-1) + "?"
	args := make([]any, len(hashes))
	for i, h := range hashes {
		args[i] = h
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE hash IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Resolve returns canonical content for the given hashes, preserving the
// caller's order. Unknown hashes are skipped, not errors.
func (s *SQLiteStorage) Resolve(ctx context.Context, hashes []string) ([]ResolvedTopic, error) {
	topics := make([]ResolvedTopic, 0, len(hashes))
	for _, h := range hashes {
		var t ResolvedTopic
		err := s.db.QueryRowContext(ctx,
			`SELECT book_name, text, url FROM documents WHERE hash = ?`, h,
		).Scan(&t.BookName, &t.Text, &t.URL)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func (s *SQLiteStorage) AllDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, book_name, title, text, url, is_supplemental FROM documents ORDER BY hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err = rows.Scan(&doc.Hash, &doc.BookName, &doc.Title, &doc.Text, &doc.URL, &doc.IsSupplemental); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) LogInteraction(ctx context.Context, entry LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO logs (user_id, query, response, status, category, created_at)
		 VALUES (?, ?, ?, ?, ?, datetime(?))`,
		entry.UserID, entry.Query, entry.Response, entry.Status, entry.Category,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return err
	}
	logID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, h := range entry.Hashes {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO log_topic_hashes (log_id, topic_hash) VALUES (?, ?)`, logID, h); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentHistory returns the user's last N log entries, oldest first, for
// the conversational-context window.
func (s *SQLiteStorage) RecentHistory(ctx context.Context, userID int64, limit int) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT log_id, user_id, query, response, status, category, created_at
		 FROM logs
		 WHERE user_id = ?
		 ORDER BY created_at DESC, log_id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		var createdAt string
		if err = rows.Scan(&entry.LogID, &entry.UserID, &entry.Query, &entry.Response,
			&entry.Status, &entry.Category, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query, oldest-first for the caller.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
