package vectorsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

type fakeStore struct {
	upserted map[int64][]float32
	hits     []db.ScoredQuote
	query    []float32
	person   int64
}

func (f *fakeStore) UpsertQuoteEmbedding(_ context.Context, quoteID, _ int64, _ string, embedding []float32) error {
	if f.upserted == nil {
		f.upserted = make(map[int64][]float32)
	}
	f.upserted[quoteID] = embedding
	return nil
}

func (f *fakeStore) NearestCanonicalQuotes(_ context.Context, personID int64, _ string, embedding []float32, _ float64, _ int) ([]db.ScoredQuote, error) {
	f.person = personID
	f.query = embedding
	return f.hits, nil
}

func embeddingServer(t *testing.T, vector []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows := make([][]float64, 0, len(req.Texts))
		for range req.Texts {
			rows = append(rows, vector)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": rows})
	}))
}

func TestIndex_SearchMapsHits(t *testing.T) {
	t.Parallel()

	server := embeddingServer(t, []float64{0.1, 0.2, 0.3})
	defer server.Close()

	store := &fakeStore{hits: []db.ScoredQuote{{QuoteID: 4, Score: 0.91}, {QuoteID: 8, Score: 0.8}}}
	index := NewIndex(store, NewEmbedder(server.URL), "", time.Second, zerolog.Nop())

	matches, err := index.Search(context.Background(), "we will rebuild", 7, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 || matches[0].QuoteID != 4 || matches[0].Score != 0.91 {
		t.Fatalf("unexpected matches %+v", matches)
	}
	if store.person != 7 || len(store.query) != 3 {
		t.Fatalf("expected person-scoped query with embedded text, got person=%d query=%v", store.person, store.query)
	}
}

func TestIndex_IndexQuoteStoresEmbedding(t *testing.T) {
	t.Parallel()

	server := embeddingServer(t, []float64{1, 0})
	defer server.Close()

	store := &fakeStore{}
	index := NewIndex(store, NewEmbedder(server.URL), "test-model", time.Second, zerolog.Nop())
	if err := index.IndexQuote(context.Background(), 12, 3, "We will rebuild"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.upserted[12]; len(got) != 2 || got[0] != 1 {
		t.Fatalf("unexpected stored embedding %v", got)
	}
}

func TestIndex_SearchTimesOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	index := NewIndex(&fakeStore{}, NewEmbedder(server.URL), "", 20*time.Millisecond, zerolog.Nop())
	_, err := index.Search(context.Background(), "slow", 1, 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestIndex_RejectsEmptyText(t *testing.T) {
	t.Parallel()

	index := NewIndex(&fakeStore{}, NewEmbedder(""), "", time.Second, zerolog.Nop())
	if _, err := index.Search(context.Background(), "   ", 1, 10); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestEmbedder_OpenAIStyleResponse(t *testing.T) {
	t.Parallel()

	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	vectors, err := NewEmbedder(server.URL+"/v1/embeddings").Embed(context.Background(), "m", []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotModel != "m" {
		t.Fatalf("expected model in request, got %q", gotModel)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("expected vectors ordered by index, got %v", vectors)
	}
}

func TestNormalizeEmbeddingEndpoint(t *testing.T) {
	t.Parallel()

	if got := normalizeEmbeddingEndpoint("http://127.0.0.1:8844"); got != "http://127.0.0.1:8844/embed" {
		t.Fatalf("unexpected endpoint normalization: %q", got)
	}
	if got := normalizeEmbeddingEndpoint("http://127.0.0.1:8844/v1/embeddings"); got != "http://127.0.0.1:8844/v1/embeddings" {
		t.Fatalf("unexpected endpoint normalization for explicit path: %q", got)
	}
	if got := normalizeEmbeddingEndpoint(""); got != DefaultEmbeddingEndpoint {
		t.Fatalf("expected default endpoint, got %q", got)
	}
}
