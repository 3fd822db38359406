package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"GoWikiRAG/app/storage"
	"GoWikiRAG/app/vectors"
)

type RetrievalResult struct {
	CombinedContext string   `json:"combined_context"`
	ChatHistory     string   `json:"chat_history"`
	Hashes          []string `json:"hashs"`
}

// Retrieve embeds the query, searches the vector index and resolves the
// matched hashes to canonical text, plus the user's recent history window.
// Failures degrade to an empty context rather than surfacing an error: no
// context found is a valid outcome for the caller.
func (p *Pipeline) Retrieve(ctx context.Context, userID int64, query string) *RetrievalResult {
	result := &RetrievalResult{Hashes: []string{}}

	vec, err := p.embed.EmbedText(ctx, query)
	if err != nil {
		log.Printf("⚠️ Error embedding query for user %d: %v", userID, err)
		return result
	}

	matches, err := p.index.Search(ctx, vec, vectors.FieldEmbedding, p.cfg.TopK)
	if err != nil {
		log.Printf("⚠️ Error searching vector index: %v", err)
		matches = nil
	}

	for _, m := range matches {
		result.Hashes = append(result.Hashes, m.Hash)
	}

	if len(result.Hashes) > 0 {
		topics, err := p.store.Resolve(ctx, result.Hashes)
		if err != nil {
			log.Printf("⚠️ Error resolving hashes %v: %v", result.Hashes, err)
		} else {
			result.CombinedContext = combineContext(topics)
		}
	}

	history, err := p.store.RecentHistory(ctx, userID, p.cfg.HistorySize)
	if err != nil {
		log.Printf("⚠️ Error loading history for user %d: %v", userID, err)
	} else {
		result.ChatHistory = storage.HistoryToString(history)
	}

	return result
}

func combineContext(topics []storage.ResolvedTopic) string {
	var b strings.Builder
	for i, t := range topics {
		fmt.Fprintf(&b, "Document %d", i+1)
		if t.BookName != "" {
			fmt.Fprintf(&b, " (%s)", t.BookName)
		}
		b.WriteString(":\n")
		b.WriteString(t.Text)
		b.WriteString("\n")
		if t.URL != "" {
			b.WriteString("Source: " + t.URL + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
