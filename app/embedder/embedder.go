package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"GoWikiRAG/app/configs"
	"GoWikiRAG/app/utils/restclient"
)

const embeddingEndpoint = "/v1/embeddings"

type Interface interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client encodes text through an OpenAI-compatible embeddings endpoint.
// It is constructed once at startup and shared for the process lifetime;
// concurrent reads are safe, but bulk jobs are expected to run one at a
// time (the pipeline serializes them).
type Client struct {
	restClient restclient.Interface
	model      string
	dimension  int
	batchSize  int
	cache      sync.Map
}

var _ Interface = &Client{}

func NewClient(cfg configs.EmbeddingConfig) *Client {
	return &Client{
		restClient: restclient.NewRestClient(cfg.BaseURL, nil),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
	}
}

type requestPayload struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type responsePayload struct {
	Data []embeddingData `json:"data"`
}

func (c *Client) Dimension() int {
	return c.dimension
}

// VerifyDimension probes the model once and compares the returned vector
// length against the configured dimension. A mismatch would silently break
// the vector index schema, so callers treat an error here as fatal.
func (c *Client) VerifyDimension(ctx context.Context) error {
	vecs, err := c.EmbedBatch(ctx, []string{"dimension probe"})
	if err != nil {
		return fmt.Errorf("probe embeddings endpoint: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != c.dimension {
		return fmt.Errorf("embedding dimension mismatch: model returns %d, configured %d",
			len(vecs[0]), c.dimension)
	}
	return nil
}

// EmbedBatch encodes texts in fixed-size chunks and L2-normalizes every
// vector, so cosine and dot-product ranking agree downstream. A failed
// chunk aborts the batch; chunks already encoded are not rolled back.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := c.sendEmbeddings(ctx, requestPayload{Model: c.model, Input: texts[start:end]}, 3)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d..%d: %w", start, end, err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embed chunk %d..%d: got %d vectors for %d inputs",
				start, end, len(resp.Data), end-start)
		}

		sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		for _, d := range resp.Data {
			vectors = append(vectors, l2Normalize(d.Embedding))
		}
	}

	return vectors, nil
}

func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Load(text); ok {
		if emb, ok2 := v.([]float32); ok2 {
			return emb, nil
		}
	}

	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	c.cache.Store(text, vecs[0])
	return vecs[0], nil
}

func (c *Client) sendEmbeddings(ctx context.Context, payload requestPayload, maxRetries int) (*responsePayload, error) {
	var (
		lastErr error
		out     responsePayload
	)

	for i := 0; i < maxRetries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if i > 0 {
			sleep := time.Duration(100*(1<<uint(i))) * time.Millisecond
			time.Sleep(sleep)
		}

		body, status, err := c.restClient.Post(ctx, embeddingEndpoint, payload, nil)
		if err != nil {
			lastErr = err
			log.Printf("⚠️ embed attempt %d failed: http=%d err=%v", i+1, status, err)
			continue
		}
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("embeddings endpoint returned %d", status)
			log.Printf("⚠️ embed attempt %d failed: http=%d body=%s", i+1, status, body)
			continue
		}
		if err = json.Unmarshal(body, &out); err != nil {
			lastErr = fmt.Errorf("parse embeddings json: %w", err)
			log.Printf("⚠️ %v", lastErr)
			continue
		}

		return &out, nil
	}

	return nil, fmt.Errorf("embeddings request failed after %d retries: %w", maxRetries, lastErr)
}

func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
