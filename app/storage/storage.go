package storage

import (
	"context"
	"fmt"
	"time"
)

type Interface interface {
	ReplaceCorpus(ctx context.Context, docs []Document) error
	InsertTopic(ctx context.Context, doc Document, userID int64) error
	DeleteByHashes(ctx context.Context, hashes []string) (int64, error)
	Resolve(ctx context.Context, hashes []string) ([]ResolvedTopic, error)
	AllDocuments(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int64, error)
	LogInteraction(ctx context.Context, entry LogEntry) error
	RecentHistory(ctx context.Context, userID int64, limit int) ([]LogEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// Document is one canonical text record. Hash is the sha256 of the
// normalized text and the sole identity shared with the vector index.
// Supplemental documents are user-submitted and survive corpus refreshes.
type Document struct {
	Hash           string `json:"hash" db:"hash"`
	BookName       string `json:"book_name" db:"book_name"`
	Title          string `json:"title" db:"title"`
	Text           string `json:"text" db:"text"`
	URL            string `json:"url" db:"url"`
	IsSupplemental bool   `json:"is_supplemental" db:"is_supplemental"`
}

type ResolvedTopic struct {
	BookName string `json:"book_name"`
	Text     string `json:"text"`
	URL      string `json:"url"`
}

// LogEntry is one append-only conversation log row plus its related hashes.
type LogEntry struct {
	LogID     int64     `json:"log_id" db:"log_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Query     string    `json:"query" db:"query"`
	Response  string    `json:"response" db:"response"`
	Status    string    `json:"status" db:"status"`
	Category  string    `json:"category" db:"category"`
	Hashes    []string  `json:"hashs"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func HistoryToString(entries []LogEntry) string {
	var summary string
	for _, entry := range entries {
		summary += fmt.Sprintf("User: %s\nAssistant: %s\n", entry.Query, entry.Response)
	}
	return summary
}
