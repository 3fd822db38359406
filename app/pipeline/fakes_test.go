package pipeline

import (
	"context"
	"crypto/sha256"
	"sort"
	"strings"

	"GoWikiRAG/app/feed"
	"GoWikiRAG/app/vectors"
)

type fakeFeed struct {
	pages []feed.Page
	err   error
}

func (f *fakeFeed) Pages(context.Context) ([]feed.Page, error) {
	return f.pages, f.err
}

// fakeEmbedder maps text deterministically to an 8-dim unit vector. Texts
// that differ only in case, surrounding whitespace or trailing punctuation
// share a vector, which stands in for an embedding model mapping
// near-identical bodies to near-identical points.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Dimension() int { return 8 }

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		key := strings.ToLower(strings.Trim(text, ".!? \r\n"))
		sum := sha256.Sum256([]byte(key))

		vec := make([]float32, 8)
		var norm float64
		for j := range vec {
			v := float64(sum[j]) + 1
			vec[j] = float32(v)
			norm += v * v
		}
		for j := range vec {
			vec[j] = float32(float64(vec[j]) / sqrt(norm))
		}
		out[i] = vec
	}
	return out, nil
}

func sqrt(x float64) float64 {
	z := x
	for i := 0; i < 20; i++ {
		z = 0.5 * (z + x/z)
	}
	return z
}

// fakeIndex is a brute-force in-memory stand-in for the qdrant index.
type fakeIndex struct {
	records  []vectors.Record
	rebuilds int
}

func (f *fakeIndex) EnsureCollection(context.Context) error { return nil }

func (f *fakeIndex) RebuildSchema(context.Context) error {
	f.records = nil
	f.rebuilds++
	return nil
}

func (f *fakeIndex) BulkInsert(_ context.Context, records []vectors.Record) error {
	for _, rec := range records {
		replaced := false
		for i := range f.records {
			if f.records[i].Hash == rec.Hash {
				f.records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			f.records = append(f.records, rec)
		}
	}
	return nil
}

func (f *fakeIndex) Search(_ context.Context, vector []float32, field string, k int) ([]vectors.Match, error) {
	matches := make([]vectors.Match, 0, len(f.records))
	for _, rec := range f.records {
		stored := rec.Embedding
		if field == vectors.FieldTitleLess {
			stored = rec.TitleLess
		}
		matches = append(matches, vectors.Match{Hash: rec.Hash, Score: cosine(vector, stored)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Hash < matches[j].Hash
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (f *fakeIndex) FetchAll(context.Context) ([]vectors.Record, error) {
	out := make([]vectors.Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeIndex) DeleteByHashes(_ context.Context, hashes []string) error {
	gone := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		gone[h] = struct{}{}
	}
	kept := f.records[:0]
	for _, rec := range f.records {
		if _, ok := gone[rec.Hash]; !ok {
			kept = append(kept, rec)
		}
	}
	f.records = kept
	return nil
}

func (f *fakeIndex) Count(context.Context) (uint64, error) {
	return uint64(len(f.records)), nil
}

func (f *fakeIndex) Close() error { return nil }

func (f *fakeIndex) hashes() []string {
	out := make([]string, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec.Hash)
	}
	sort.Strings(out)
	return out
}

// cosine treats byte-identical vectors as an exact match, the way an index
// scores a vector against itself.
func cosine(a, b []float32) float32 {
	identical := len(a) == len(b)
	var dot float64
	for i := range a {
		if i < len(b) {
			dot += float64(a[i]) * float64(b[i])
			identical = identical && a[i] == b[i]
		}
	}
	if identical {
		return 1
	}
	return float32(dot)
}
