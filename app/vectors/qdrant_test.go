package vectors

import "testing"

func TestPointIDDeterministic(t *testing.T) {
	hash := "3f0a9c2d3f0a9c2d3f0a9c2d3f0a9c2d3f0a9c2d3f0a9c2d3f0a9c2d3f0a9c2d"
	if pointID(hash) != pointID(hash) {
		t.Fatal("same hash must map to the same point ID")
	}
	if pointID(hash) == pointID("different") {
		t.Fatal("distinct hashes must map to distinct point IDs")
	}
}

func TestVectorsConfigCoversBothFields(t *testing.T) {
	s := &QdrantIndex{collection: "c", dimension: 512}
	cfg := s.vectorsConfig()
	m := cfg.GetParamsMap().GetMap()
	for _, field := range []string{FieldEmbedding, FieldTitleLess} {
		params, ok := m[field]
		if !ok {
			t.Fatalf("missing vector params for %s", field)
		}
		if params.GetSize() != 512 {
			t.Fatalf("unexpected size for %s: %d", field, params.GetSize())
		}
	}
}
