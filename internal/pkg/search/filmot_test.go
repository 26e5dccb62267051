package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestFilmotClient(ts *httptest.Server) *FilmotClient {
	return &FilmotClient{
		APIKey:     "test-key",
		APIBaseURL: ts.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestFilmotSearchParsesResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getsearch", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "hello world", r.URL.Query().Get("query"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total_count": 12,
			"videos": [
				{
					"id": "abc123",
					"title": "A video",
					"channelname": "Some Channel",
					"channelid": "UC1",
					"lang": "en",
					"uploaddate": "2024-11-02",
					"duration": 361,
					"hits": [
						{"start": 12.5, "token": "hello", "ctx_before": "she said", "ctx_after": "world to"}
					]
				},
				{"id": "", "title": "dropped: missing id"}
			]
		}`))
	}))
	defer ts.Close()

	results, total, err := newTestFilmotClient(ts).Search(context.Background(), "hello world", Options{Language: "en"})

	assert.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, results, 1)
	assert.Equal(t, "abc123", results[0].VideoID)
	assert.Equal(t, "Some Channel", results[0].Channel)
	assert.Equal(t, 361, results[0].Duration)
	assert.Len(t, results[0].Hits, 1)
	assert.Equal(t, 12.5, results[0].Hits[0].Start)
	assert.Equal(t, "she said", results[0].Hits[0].ContextBefore)
}

func TestFilmotSearchChannelFilter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "UC42", r.URL.Query().Get("channelID"))
		_, _ = w.Write([]byte(`{"videos": [], "total_count": 0}`))
	}))
	defer ts.Close()

	results, total, err := newTestFilmotClient(ts).Search(context.Background(), "query", Options{ChannelID: "UC42"})

	assert.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, results)
}

func TestFilmotSearchUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, _, err := newTestFilmotClient(ts).Search(context.Background(), "query", Options{})
	assert.Error(t, err)
}

func TestFilmotSearchRequiresKeyAndQuery(t *testing.T) {
	c := &FilmotClient{APIBaseURL: "http://localhost", HTTPClient: http.DefaultClient}
	_, _, err := c.Search(context.Background(), "query", Options{})
	assert.Error(t, err)

	c.APIKey = "key"
	_, _, err = c.Search(context.Background(), "   ", Options{})
	assert.Error(t, err)
}
