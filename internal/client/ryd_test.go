package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRYDVotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/votes", r.URL.Path)
		assert.Equal(t, "video123", r.URL.Query().Get("videoId"))
		w.Write([]byte(`{"dislikes": 42, "rating": 4.7, "likes": 1000}`))
	}))
	defer server.Close()

	c := NewRYDClient(server.URL)
	stats, err := c.Votes(context.Background(), "video123")
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, int64(42), stats.Dislikes)
	assert.Equal(t, 4.7, stats.Rating)
}

func TestRYDVotesUnknownVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewRYDClient(server.URL)
	stats, err := c.Votes(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestRYDVotesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewRYDClient(server.URL)
	_, err := c.Votes(context.Background(), "video123")
	assert.Error(t, err)
}
