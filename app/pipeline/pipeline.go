package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"GoWikiRAG/app/embedder"
	"GoWikiRAG/app/feed"
	"GoWikiRAG/app/storage"
	"GoWikiRAG/app/vectors"
)

var ErrContentTooShort = errors.New("document content too short")

type Config struct {
	WikiBaseURL    string
	TopK           int
	HistorySize    int
	DedupThreshold float32
	DedupScanK     int
}

// Pipeline owns the ingestion, deduplication and retrieval units of work.
// The relational store and the vector index are always mutated within the
// same unit, keyed by content hash, so a failed unit can be redone whole.
type Pipeline struct {
	feed  feed.Interface
	store storage.Interface
	index vectors.Index
	embed embedder.Interface
	cfg   Config

	// Serializes bulk embedding jobs: one in-flight refresh or topic
	// insert at a time.
	mu sync.Mutex
}

func New(feedClient feed.Interface, store storage.Interface, index vectors.Index,
	embed embedder.Interface, cfg Config) *Pipeline {
	return &Pipeline{
		feed:  feedClient,
		store: store,
		index: index,
		embed: embed,
		cfg:   cfg,
	}
}

type RefreshReport struct {
	Ingested     int   `json:"ingested"`
	Skipped      int   `json:"skipped"`
	DeletedCount int64 `json:"deleted_count"`
	DataCount    int64 `json:"data_count"`
}

// FullRefresh replaces the bulk-sourced corpus: pull every page from the
// feed, canonicalize, rewrite the relational store in one transaction,
// rebuild the vector index from all surviving rows (supplemental included)
// and prune near-duplicates. Re-running it on an unchanged corpus yields
// the same hashes and counts.
func (p *Pipeline) FullRefresh(ctx context.Context) (*RefreshReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pages, err := p.feed.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("pull source feed: %w", err)
	}

	report := &RefreshReport{}
	seen := make(map[string]struct{}, len(pages))
	docs := make([]storage.Document, 0, len(pages))
	for _, page := range pages {
		text, ok := Canonicalize(page.Body)
		if !ok {
			report.Skipped++
			continue
		}
		hash := ContentHash(text)
		if _, dup := seen[hash]; dup {
			report.Skipped++
			continue
		}
		seen[hash] = struct{}{}
		docs = append(docs, storage.Document{
			Hash:     hash,
			BookName: page.BookName,
			Title:    page.Title,
			Text:     text,
			URL:      page.URL(p.cfg.WikiBaseURL),
		})
	}
	report.Ingested = len(docs)

	if err = p.store.ReplaceCorpus(ctx, docs); err != nil {
		return nil, fmt.Errorf("replace corpus: %w", err)
	}

	all, err := p.store.AllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("read corpus back: %w", err)
	}

	if err = p.index.RebuildSchema(ctx); err != nil {
		return nil, fmt.Errorf("rebuild vector schema: %w", err)
	}

	records, err := p.embedDocuments(ctx, all)
	if err != nil {
		return nil, err
	}
	if err = p.index.BulkInsert(ctx, records); err != nil {
		return nil, fmt.Errorf("bulk insert vectors: %w", err)
	}
	log.Printf("✅ Indexed %d documents (%d skipped)", len(records), report.Skipped)

	deleted, total, err := p.Deduplicate(ctx)
	if err != nil {
		return nil, err
	}
	report.DeletedCount = int64(len(deleted))
	report.DataCount = total

	return report, nil
}

// AddTopic stores one user-submitted document in both stores. No global
// dedup runs; the next full refresh handles that.
func (p *Pipeline) AddTopic(ctx context.Context, title, text string, userID int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	normalized, ok := Canonicalize(text)
	if !ok {
		return "", ErrContentTooShort
	}
	hash := ContentHash(normalized)

	doc := storage.Document{
		Hash:           hash,
		Title:          title,
		Text:           normalized,
		IsSupplemental: true,
	}
	if err := p.store.InsertTopic(ctx, doc, userID); err != nil {
		return "", fmt.Errorf("insert topic: %w", err)
	}

	if err := p.index.EnsureCollection(ctx); err != nil {
		return "", err
	}
	records, err := p.embedDocuments(ctx, []storage.Document{doc})
	if err != nil {
		return "", err
	}
	if err = p.index.BulkInsert(ctx, records); err != nil {
		return "", fmt.Errorf("insert topic vector: %w", err)
	}

	log.Printf("✅ Topic %s added for user %d", hash, userID)
	return hash, nil
}

// embedDocuments encodes each document twice: once with book name and
// title prepended, once body-only for duplicate detection.
func (p *Pipeline) embedDocuments(ctx context.Context, docs []storage.Document) ([]vectors.Record, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	fullTexts := make([]string, len(docs))
	bodyTexts := make([]string, len(docs))
	for i, doc := range docs {
		fullTexts[i] = doc.BookName + "\n" + doc.Title + doc.Text
		bodyTexts[i] = doc.Text
	}

	fullVecs, err := p.embed.EmbedBatch(ctx, fullTexts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	bodyVecs, err := p.embed.EmbedBatch(ctx, bodyTexts)
	if err != nil {
		return nil, fmt.Errorf("embed title-less documents: %w", err)
	}

	records := make([]vectors.Record, len(docs))
	for i, doc := range docs {
		records[i] = vectors.Record{
			Hash:      doc.Hash,
			Embedding: fullVecs[i],
			TitleLess: bodyVecs[i],
		}
	}
	return records, nil
}
