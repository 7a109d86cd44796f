package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/streamvault/archiver/internal/config"
)

// Store is the path-addressed client for the document store. Callers build
// paths like "ta_video/_doc/{id}" themselves, mirroring the wire protocol.
type Store struct {
	httpClient *http.Client
	baseURL    string
	user       string
	password   string
}

// NewStore creates a document store client from config.
func NewStore(cfg *config.StoreConfig) *Store {
	return &Store{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:  cfg.URL,
		user:     cfg.User,
		password: cfg.Password,
	}
}

func (s *Store) do(ctx context.Context, method, path string, body []byte, contentType string) (json.RawMessage, int, error) {
	url := s.baseURL + "/" + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

func (s *Store) doJSON(ctx context.Context, method, path string, body any) (json.RawMessage, int, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
	}
	return s.do(ctx, method, path, data, "application/json")
}

// Get issues GET {path} and returns the raw body plus status code.
func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, int, error) {
	return s.do(ctx, http.MethodGet, path, nil, "")
}

// Post issues POST {path} with a JSON body.
func (s *Store) Post(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	return s.doJSON(ctx, http.MethodPost, path, body)
}

// Put issues PUT {path} with a JSON body.
func (s *Store) Put(ctx context.Context, path string, body any) (json.RawMessage, int, error) {
	return s.doJSON(ctx, http.MethodPut, path, body)
}

// Delete issues DELETE {path}, optionally forcing an index refresh.
func (s *Store) Delete(ctx context.Context, path string, refresh bool) (json.RawMessage, int, error) {
	if refresh {
		path += "?refresh=true"
	}
	return s.do(ctx, http.MethodDelete, path, nil, "")
}

// Bulk posts a newline-delimited action/source payload to the bulk endpoint.
// Non-2xx responses are errors, the payload is replayed as-is on restore.
func (s *Store) Bulk(ctx context.Context, payload []byte) error {
	body, status, err := s.do(ctx, http.MethodPost, "_bulk", payload, "application/x-ndjson")
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("bulk request failed with status %d: %s", status, string(body))
	}
	return nil
}

// Count returns the total document count of an index.
func (s *Store) Count(ctx context.Context, index string) (int64, error) {
	body, status, err := s.Get(ctx, index+"/_count")
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("count failed for %s with status %d", index, status)
	}

	var result struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to unmarshal count: %w", err)
	}
	return result.Count, nil
}

// IndexExists checks whether an index was created yet.
func (s *Store) IndexExists(ctx context.Context, index string) (bool, error) {
	_, status, err := s.Get(ctx, index)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// Hit is one scan result with its addressing metadata, enough to rebuild a
// bulk action line.
type Hit struct {
	Index  string            `json:"_index"`
	ID     string            `json:"_id"`
	Source json.RawMessage   `json:"_source"`
	Sort   []json.RawMessage `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations"`
}

// ScanIndex pages through every document of an index with search_after over
// the _doc sort and hands each page to fn. Order is not meaningful.
func (s *Store) ScanIndex(ctx context.Context, index string, pageSize int, fn func(hits []Hit) error) error {
	var searchAfter []json.RawMessage

	for {
		query := map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
			"size":  pageSize,
			"sort":  []any{map[string]any{"_doc": map[string]any{"order": "asc"}}},
		}
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}

		body, status, err := s.Post(ctx, index+"/_search", query)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("scan failed for %s with status %d", index, status)
		}

		var page searchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("failed to unmarshal scan page: %w", err)
		}
		if len(page.Hits.Hits) == 0 {
			return nil
		}

		if err := fn(page.Hits.Hits); err != nil {
			return err
		}

		last := page.Hits.Hits[len(page.Hits.Hits)-1]
		if last.Sort == nil {
			return nil
		}
		searchAfter = last.Sort
	}
}
