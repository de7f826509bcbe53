package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Conversation is one processed conversation in the index. The enriched
// document itself lives on disk at DocumentPath; the index carries the
// fields the API lists and filters by.
type Conversation struct {
	JobName      string    `json:"job_name"`
	GUID         string    `json:"guid"`
	Agent        string    `json:"agent"`
	LanguageCode string    `json:"language_code"`
	Duration     string    `json:"duration"`
	ProcessedAt  time.Time `json:"processed_at"`
	DocumentPath string    `json:"document_path"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "pca.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			job_name TEXT PRIMARY KEY,
			guid TEXT NOT NULL DEFAULT 'None',
			agent TEXT NOT NULL DEFAULT 'None',
			language_code TEXT NOT NULL DEFAULT '',
			duration TEXT NOT NULL DEFAULT '0',
			processed_at TEXT NOT NULL,
			document_path TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_conversations_processed_at ON conversations(processed_at)"); err != nil {
		return fmt.Errorf("create conversations index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// UpsertConversation records a processed conversation; reprocessing a job
// replaces its previous index entry.
func (s *SQLiteStore) UpsertConversation(conv Conversation) error {
	if strings.TrimSpace(conv.JobName) == "" {
		return errors.New("job name is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO conversations(job_name, guid, agent, language_code, duration, processed_at, document_path)
		 VALUES(?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_name) DO UPDATE SET
			guid = excluded.guid,
			agent = excluded.agent,
			language_code = excluded.language_code,
			duration = excluded.duration,
			processed_at = excluded.processed_at,
			document_path = excluded.document_path`,
		conv.JobName,
		conv.GUID,
		conv.Agent,
		conv.LanguageCode,
		conv.Duration,
		conv.ProcessedAt.UTC().Format(time.RFC3339Nano),
		conv.DocumentPath,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation %s: %w", conv.JobName, err)
	}
	return nil
}

func (s *SQLiteStore) GetConversation(jobName string) (Conversation, error) {
	row := s.db.QueryRow(
		`SELECT job_name, guid, agent, language_code, duration, processed_at, document_path
		 FROM conversations WHERE job_name = ?`,
		jobName,
	)

	conv, err := scanConversation(row.Scan)
	if err != nil {
		return Conversation{}, fmt.Errorf("query conversation %s: %w", jobName, err)
	}
	return conv, nil
}

func (s *SQLiteStore) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query(
		`SELECT job_name, guid, agent, language_code, duration, processed_at, document_path
		 FROM conversations
		 ORDER BY processed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanConversations(rows)
}

func (s *SQLiteStore) GetConversationsByDate(date string) ([]Conversation, error) {
	rows, err := s.db.Query(
		`SELECT job_name, guid, agent, language_code, duration, processed_at, document_path
		 FROM conversations
		 WHERE substr(processed_at, 1, 10) = ?
		 ORDER BY processed_at DESC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations by date %s: %w", date, err)
	}
	defer func() { _ = rows.Close() }()

	return scanConversations(rows)
}

func (s *SQLiteStore) GetDates() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT substr(processed_at, 1, 10) AS date FROM conversations ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates rows: %w", err)
	}

	return dates, nil
}

func scanConversation(scan func(dest ...any) error) (Conversation, error) {
	var conv Conversation
	var processedAt string
	if err := scan(&conv.JobName, &conv.GUID, &conv.Agent, &conv.LanguageCode, &conv.Duration, &processedAt, &conv.DocumentPath); err != nil {
		return Conversation{}, err
	}

	parsed, err := time.Parse(time.RFC3339Nano, processedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("parse processed_at: %w", err)
	}
	conv.ProcessedAt = parsed

	return conv, nil
}

func scanConversations(rows *sql.Rows) ([]Conversation, error) {
	conversations := make([]Conversation, 0, 16)
	for rows.Next() {
		conv, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations rows: %w", err)
	}

	return conversations, nil
}
