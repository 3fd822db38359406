package vectors

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"GoWikiRAG/app/configs"
)

type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

var _ Index = &QdrantIndex{}

func NewQdrantIndex(cfg configs.QdrantConfig, dimension int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimension:  dimension,
	}, nil
}

// pointID derives a deterministic UUID from the content hash, so repeated
// inserts of the same document overwrite one point instead of accumulating.
func pointID(hash string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(hash)).String()
}

func (s *QdrantIndex) vectorsConfig() *qdrant.VectorsConfig {
	params := func() *qdrant.VectorParams {
		return &qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}
	}
	return &qdrant.VectorsConfig{
		Config: &qdrant.VectorsConfig_ParamsMap{
			ParamsMap: &qdrant.VectorParamsMap{
				Map: map[string]*qdrant.VectorParams{
					FieldEmbedding: params(),
					FieldTitleLess: params(),
				},
			},
		},
	}
}

func (s *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig:  s.vectorsConfig(),
	}); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantIndex) RebuildSchema(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		if err = s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("drop collection %s: %w", s.collection, err)
		}
		log.Printf("🧹 Collection %s dropped for rebuild", s.collection)
	}
	if err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig:  s.vectorsConfig(),
	}); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantIndex) BulkInsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	pts := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		pts[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(pointID(rec.Hash)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				FieldEmbedding: qdrant.NewVectorDense(rec.Embedding),
				FieldTitleLess: qdrant.NewVectorDense(rec.TitleLess),
			}),
			Payload: qdrant.NewValueMap(map[string]any{"hash": rec.Hash}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         pts,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

func (s *QdrantIndex) Search(ctx context.Context, vector []float32, field string, k int) ([]Match, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	limit := uint64(k)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          qdrant.PtrOf(field),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp))
	for _, r := range resp {
		hash := r.GetPayload()["hash"].GetStringValue()
		if hash == "" {
			continue
		}
		matches = append(matches, Match{Hash: hash, Score: r.GetScore()})
	}
	return matches, nil
}

func (s *QdrantIndex) FetchAll(ctx context.Context) ([]Record, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	pts, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          qdrant.PtrOf(uint32(count)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(pts))
	for _, pt := range pts {
		hash := pt.GetPayload()["hash"].GetStringValue()
		named := pt.GetVectors().GetVectors().GetVectors()
		if hash == "" || named == nil {
			continue
		}
		records = append(records, Record{
			Hash:      hash,
			Embedding: named[FieldEmbedding].GetData(),
			TitleLess: named[FieldTitleLess].GetData(),
		})
	}
	return records, nil
}

func (s *QdrantIndex) DeleteByHashes(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, len(hashes))
	for i, h := range hashes {
		ids[i] = qdrant.NewIDUUID(pointID(h))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(ids...),
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

func (s *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	return s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
}

func (s *QdrantIndex) Close() error {
	return s.client.Close()
}
