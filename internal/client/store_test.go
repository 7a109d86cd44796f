package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/archiver/internal/config"
)

func newTestStore(url string) *Store {
	return NewStore(&config.StoreConfig{URL: url, User: "elastic", Password: "secret"})
}

func TestStoreDeleteRefresh(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		assert.Equal(t, http.MethodDelete, r.Method)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	s := newTestStore(server.URL)
	_, status, err := s.Delete(context.Background(), "ta_video/_doc/abc", true)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/ta_video/_doc/abc?refresh=true", gotPath)
}

func TestStoreBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "elastic", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	s := newTestStore(server.URL)
	_, _, err := s.Get(context.Background(), "ta_video")
	require.NoError(t, err)
}

func TestStoreCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ta_video/_count", r.URL.Path)
		w.Write([]byte(`{"count": 123}`))
	}))
	defer server.Close()

	s := newTestStore(server.URL)
	count, err := s.Count(context.Background(), "ta_video")
	require.NoError(t, err)
	assert.Equal(t, int64(123), count)
}

func TestStoreBulkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "malformed"}`))
	}))
	defer server.Close()

	s := newTestStore(server.URL)
	err := s.Bulk(context.Background(), []byte("{}\n"))
	assert.Error(t, err)
}

func TestStoreScanIndexPagination(t *testing.T) {
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		requests = append(requests, query)

		page := len(requests)
		if page > 2 {
			w.Write([]byte(`{"hits": {"hits": []}}`))
			return
		}
		fmt.Fprintf(w, `{"hits": {"hits": [
			{"_index": "ta_video", "_id": "doc%d-1", "_source": {"n": 1}, "sort": [%d]},
			{"_index": "ta_video", "_id": "doc%d-2", "_source": {"n": 2}, "sort": [%d]}
		]}}`, page, page*10, page, page*10+1)
	}))
	defer server.Close()

	s := newTestStore(server.URL)

	var pages [][]Hit
	err := s.ScanIndex(context.Background(), "ta_video", 2, func(hits []Hit) error {
		pages = append(pages, hits)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "doc1-1", pages[0][0].ID)
	assert.Equal(t, "doc2-2", pages[1][1].ID)

	// first request has no cursor, later ones resume from the last sort value
	require.Len(t, requests, 3)
	assert.NotContains(t, requests[0], "search_after")
	assert.Contains(t, requests[1], "search_after")
	assert.Equal(t, []any{float64(11)}, requests[1]["search_after"])
	assert.Equal(t, []any{float64(21)}, requests[2]["search_after"])
}
