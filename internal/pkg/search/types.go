package search

// CaptionHit is one keyword occurrence inside a video's captions.
type CaptionHit struct {
	Start         float64 `json:"start"`
	Token         string  `json:"token"`
	ContextBefore string  `json:"context_before"`
	ContextAfter  string  `json:"context_after"`
}

// Result is the narrow, explicitly-typed contract for one matched video. The
// upstream responses are validated into this shape at the boundary instead of
// being passed through untyped.
type Result struct {
	VideoID    string       `json:"video_id"`
	Title      string       `json:"title"`
	Channel    string       `json:"channel"`
	ChannelID  string       `json:"channel_id"`
	Language   string       `json:"language,omitempty"`
	UploadDate string       `json:"upload_date,omitempty"`
	Duration   int          `json:"duration,omitempty"`
	ViewCount  int64        `json:"view_count,omitempty"`
	LikeCount  int64        `json:"like_count,omitempty"`
	Hits       []CaptionHit `json:"hits"`
}

// Response is what a search returns to the serving path.
type Response struct {
	Results    []Result `json:"results"`
	TotalCount int      `json:"total_count"`
	Truncated  bool     `json:"truncated"`
}

// Options narrows a search. All fields are optional and upstream-owned.
type Options struct {
	Language  string `json:"language,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}
