package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnrichStatistics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "statistics", r.URL.Query().Get("part"))
		assert.Equal(t, "vid1,vid2", r.URL.Query().Get("id"))

		_, _ = w.Write([]byte(`{
			"items": [
				{"id": "vid1", "statistics": {"viewCount": "1200", "likeCount": "34"}},
				{"id": "vid2", "statistics": {"viewCount": "not-a-number"}}
			]
		}`))
	}))
	defer ts.Close()

	c := &YouTubeClient{APIKey: "key", APIBaseURL: ts.URL, HTTPClient: &http.Client{Timeout: 5 * time.Second}}
	results := []Result{
		{VideoID: "vid1"},
		{VideoID: "vid2"},
	}

	err := c.EnrichStatistics(context.Background(), results)

	assert.NoError(t, err)
	assert.Equal(t, int64(1200), results[0].ViewCount)
	assert.Equal(t, int64(34), results[0].LikeCount)
	// Unparseable numbers leave the zero value in place.
	assert.Equal(t, int64(0), results[1].ViewCount)
}

func TestEnrichStatisticsBatches(t *testing.T) {
	var calls []int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		calls = append(calls, len(ids))
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer ts.Close()

	c := &YouTubeClient{APIKey: "key", APIBaseURL: ts.URL, HTTPClient: &http.Client{Timeout: 5 * time.Second}}

	results := make([]Result, 120)
	for i := range results {
		results[i].VideoID = fmt.Sprintf("vid%d", i)
	}

	err := c.EnrichStatistics(context.Background(), results)

	assert.NoError(t, err)
	assert.Equal(t, []int{50, 50, 20}, calls)
}

func TestEnrichStatisticsNoResultsIsNoop(t *testing.T) {
	c := &YouTubeClient{APIKey: "key", APIBaseURL: "http://localhost", HTTPClient: http.DefaultClient}
	assert.NoError(t, c.EnrichStatistics(context.Background(), nil))
}

func TestEnrichStatisticsRequiresKey(t *testing.T) {
	c := &YouTubeClient{HTTPClient: http.DefaultClient}
	err := c.EnrichStatistics(context.Background(), []Result{{VideoID: "vid1"}})
	assert.Error(t, err)
}
