package vectors

import "context"

// Named vector fields carried by every point. The title-less field embeds
// the body text only, so differing titles cannot mask duplicate bodies.
const (
	FieldEmbedding = "embedding"
	FieldTitleLess = "embedding_title_less"
)

// Record couples a content hash with its two unit-length vectors. The hash
// must match a row in the relational store; the two stores are mutated in
// lock-step by the pipeline.
type Record struct {
	Hash      string
	Embedding []float32
	TitleLess []float32
}

type Match struct {
	Hash  string
	Score float32
}

type Index interface {
	// EnsureCollection creates the collection if missing, never drops.
	EnsureCollection(ctx context.Context) error
	// RebuildSchema drops and recreates the collection, discarding all
	// vectors. Used only by a full refresh.
	RebuildSchema(ctx context.Context) error
	// BulkInsert appends records; writes wait for index visibility, so a
	// subsequent Search reflects them.
	BulkInsert(ctx context.Context, records []Record) error
	// Search runs k-NN cosine search on the given field. A missing or
	// empty collection yields an empty result, not an error.
	Search(ctx context.Context, vector []float32, field string, k int) ([]Match, error)
	// FetchAll returns every stored record with its title-less vector.
	FetchAll(ctx context.Context) ([]Record, error)
	DeleteByHashes(ctx context.Context, hashes []string) error
	Count(ctx context.Context) (uint64, error)
	Close() error
}
