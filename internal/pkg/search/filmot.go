package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clipscout/clipscout/internal/pkg/env"
)

const defaultFilmotAPIBaseURL = "https://filmot.com/api"

// FilmotClient talks to the Filmot captioned-video index. The index itself is
// a black box returning pre-computed hit lists; this client only types the
// wire shape.
type FilmotClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewFilmotClientFromEnv builds a client from FILMOT_* environment variables.
// The HTTP timeout bounds how long a hung upstream can hold a handler.
func NewFilmotClientFromEnv() *FilmotClient {
	return &FilmotClient{
		APIKey:     strings.TrimSpace(env.GetEnv("FILMOT_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("FILMOT_API_BASE_URL", defaultFilmotAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type filmotHit struct {
	Start  float64 `json:"start"`
	Token  string  `json:"token"`
	CtxBef string  `json:"ctx_before"`
	CtxAft string  `json:"ctx_after"`
}

type filmotVideo struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Channel    string      `json:"channelname"`
	ChannelID  string      `json:"channelid"`
	Language   string      `json:"lang"`
	UploadDate string      `json:"uploaddate"`
	Duration   int         `json:"duration"`
	Hits       []filmotHit `json:"hits"`
}

type filmotSearchResponse struct {
	Videos     []filmotVideo `json:"videos"`
	TotalCount int           `json:"total_count"`
}

// Search queries the caption index for keyword mentions. It either succeeds
// with a typed hit list or fails; callers must not consume quota on failure.
func (c *FilmotClient) Search(ctx context.Context, query string, opts Options) ([]Result, int, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, 0, errors.New("FILMOT_API_KEY is not configured")
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, 0, errors.New("search query is required")
	}

	u, err := url.Parse(c.APIBaseURL + "/getsearch")
	if err != nil {
		return nil, 0, fmt.Errorf("invalid FILMOT_API_BASE_URL: %w", err)
	}
	params := u.Query()
	params.Set("key", c.APIKey)
	params.Set("query", q)
	if opts.Language != "" {
		params.Set("lang", opts.Language)
	}
	if opts.ChannelID != "" {
		params.Set("channelID", opts.ChannelID)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("filmot search failed: status %d", resp.StatusCode)
	}

	var parsed filmotSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, fmt.Errorf("filmot search: unexpected response shape: %w", err)
	}

	results := make([]Result, 0, len(parsed.Videos))
	for _, v := range parsed.Videos {
		if strings.TrimSpace(v.ID) == "" {
			continue
		}
		r := Result{
			VideoID:    v.ID,
			Title:      v.Title,
			Channel:    v.Channel,
			ChannelID:  v.ChannelID,
			Language:   v.Language,
			UploadDate: v.UploadDate,
			Duration:   v.Duration,
			Hits:       make([]CaptionHit, 0, len(v.Hits)),
		}
		for _, h := range v.Hits {
			r.Hits = append(r.Hits, CaptionHit{
				Start:         h.Start,
				Token:         h.Token,
				ContextBefore: h.CtxBef,
				ContextAfter:  h.CtxAft,
			})
		}
		results = append(results, r)
	}

	total := parsed.TotalCount
	if total < len(results) {
		total = len(results)
	}
	return results, total, nil
}
