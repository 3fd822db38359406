package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"GoWikiRAG/app/vectors"
)

// Deduplicate prunes near-duplicate documents from both stores. Every
// stored vector is used as a query against the title-less field; any other
// hash scoring at or above the threshold is marked for deletion. Records
// are scanned in ascending hash order, so the survivor of a duplicate
// cluster is always the lexicographically smallest hash, regardless of the
// index's fetch order. Hashes already marked are never re-evaluated as
// survivors. Returns the deleted set and the post-deletion document count.
func (p *Pipeline) Deduplicate(ctx context.Context) (map[string]struct{}, int64, error) {
	records, err := p.index.FetchAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch vectors for dedup: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Hash < records[j].Hash })

	deleted := make(map[string]struct{})
	for _, rec := range records {
		if _, gone := deleted[rec.Hash]; gone {
			continue
		}

		matches, err := p.index.Search(ctx, rec.TitleLess, vectors.FieldTitleLess, p.cfg.DedupScanK)
		if err != nil {
			return nil, 0, fmt.Errorf("dedup self-search for %s: %w", rec.Hash, err)
		}
		for _, m := range matches {
			if m.Hash == rec.Hash || m.Score < p.cfg.DedupThreshold {
				continue
			}
			if _, gone := deleted[m.Hash]; !gone {
				deleted[m.Hash] = struct{}{}
				log.Printf("🧹 Duplicate %s of %s (similarity %.2f%%)", m.Hash, rec.Hash, m.Score*100)
			}
		}
	}

	if len(deleted) > 0 {
		hashes := make([]string, 0, len(deleted))
		for h := range deleted {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)

		if err = p.index.DeleteByHashes(ctx, hashes); err != nil {
			return nil, 0, fmt.Errorf("delete duplicate vectors: %w", err)
		}
		affected, err := p.store.DeleteByHashes(ctx, hashes)
		if err != nil {
			return nil, 0, fmt.Errorf("delete duplicate documents: %w", err)
		}
		log.Printf("🧹 Deduplication removed %d vectors, %d rows", len(hashes), affected)
	}

	total, err := p.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return deleted, total, nil
}
