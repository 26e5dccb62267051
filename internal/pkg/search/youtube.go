package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clipscout/clipscout/internal/pkg/env"
)

const defaultYouTubeAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// youtubeBatchSize is the Data API's maximum id-list size per request.
const youtubeBatchSize = 50

// YouTubeClient reads video statistics from the YouTube Data API v3.
type YouTubeClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewYouTubeClientFromEnv builds a client from YOUTUBE_* environment variables.
func NewYouTubeClientFromEnv() *YouTubeClient {
	return &YouTubeClient{
		APIKey:     strings.TrimSpace(env.GetEnv("YOUTUBE_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("YOUTUBE_API_BASE_URL", defaultYouTubeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type youtubeStatistics struct {
	ViewCount string `json:"viewCount"`
	LikeCount string `json:"likeCount"`
}

type youtubeVideoItem struct {
	ID         string            `json:"id"`
	Statistics youtubeStatistics `json:"statistics"`
}

type youtubeVideosResponse struct {
	Items []youtubeVideoItem `json:"items"`
}

// EnrichStatistics fills ViewCount/LikeCount on the given results in place.
// Statistics are cosmetic, so callers treat a failure here as non-fatal.
func (c *YouTubeClient) EnrichStatistics(ctx context.Context, results []Result) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("YOUTUBE_API_KEY is not configured")
	}
	if len(results) == 0 {
		return nil
	}

	byID := make(map[string]*Result, len(results))
	ids := make([]string, 0, len(results))
	for i := range results {
		if results[i].VideoID == "" {
			continue
		}
		byID[results[i].VideoID] = &results[i]
		ids = append(ids, results[i].VideoID)
	}

	for start := 0; start < len(ids); start += youtubeBatchSize {
		end := start + youtubeBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := c.fetchBatch(ctx, ids[start:end], byID); err != nil {
			return err
		}
	}
	return nil
}

func (c *YouTubeClient) fetchBatch(ctx context.Context, ids []string, byID map[string]*Result) error {
	u, err := url.Parse(c.APIBaseURL + "/videos")
	if err != nil {
		return fmt.Errorf("invalid YOUTUBE_API_BASE_URL: %w", err)
	}
	params := u.Query()
	params.Set("key", c.APIKey)
	params.Set("part", "statistics")
	params.Set("id", strings.Join(ids, ","))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube videos lookup failed: status %d", resp.StatusCode)
	}

	var parsed youtubeVideosResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("youtube videos lookup: unexpected response shape: %w", err)
	}

	for _, item := range parsed.Items {
		r, ok := byID[item.ID]
		if !ok {
			continue
		}
		if v, err := strconv.ParseInt(item.Statistics.ViewCount, 10, 64); err == nil {
			r.ViewCount = v
		}
		if v, err := strconv.ParseInt(item.Statistics.LikeCount, 10, 64); err == nil {
			r.LikeCount = v
		}
	}
	return nil
}
