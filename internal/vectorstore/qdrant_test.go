package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrant_EnsureCollection(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result":true,"status":"ok"}`))
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL, Collection: "docs"})
	require.NoError(t, q.EnsureCollection(context.Background(), 3))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/collections/docs", gotPath)
	vectors, ok := gotBody["vectors"].(map[string]any)
	require.True(t, ok, "missing vectors config: %v", gotBody)
	assert.Equal(t, "Cosine", vectors["distance"])
	assert.Equal(t, float64(3), vectors["size"])
}

func TestQdrant_EnsureCollection_InvalidDimension(t *testing.T) {
	q := NewQdrant(QdrantConfig{URL: "http://localhost:6333"})
	require.Error(t, q.EnsureCollection(context.Background(), 0))
}

func TestQdrant_Upsert(t *testing.T) {
	var gotBody struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	points := []Point{{
		ID:       "11111111-1111-1111-1111-111111111111",
		Vector:   []float64{0.1, 0.2},
		Content:  "hello",
		Metadata: map[string]any{"source": "test"},
	}}
	require.NoError(t, q.Upsert(context.Background(), points))

	require.Len(t, gotBody.Points, 1)
	p := gotBody.Points[0]
	assert.Equal(t, "hello", p.Payload["content"])
	meta, ok := p.Payload["metadata"].(map[string]any)
	require.True(t, ok, "metadata not in payload: %v", p.Payload)
	assert.Equal(t, "test", meta["source"])
}

func TestQdrant_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":[
			{"score":0.95,"payload":{"content":"top","metadata":{"source":"a"}}},
			{"score":0.42,"payload":{"content":"low","metadata":{}}}
		]}`))
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	hits, err := q.Search(context.Background(), []float64{0.1}, 5)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "top", hits[0].Content)
	assert.Equal(t, 0.95, hits[0].Score)
	assert.Equal(t, "a", hits[0].Metadata["source"])
}

func TestQdrant_Delete_FilterShape(t *testing.T) {
	var gotBody struct {
		Filter struct {
			Must []struct {
				Key   string         `json:"key"`
				Match map[string]any `json:"match"`
			} `json:"must"`
		} `json:"filter"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	require.NoError(t, q.Delete(context.Background(), map[string]any{"source": "test"}))

	require.Len(t, gotBody.Filter.Must, 1)
	clause := gotBody.Filter.Must[0]
	assert.Equal(t, "metadata.source", clause.Key)
	assert.Equal(t, "test", clause.Match["value"])
}

func TestQdrant_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	q := NewQdrant(QdrantConfig{URL: srv.URL})
	_, err := q.Search(context.Background(), []float64{0.1}, 5)
	require.Error(t, err)
}
