package models

// ReviewsResponse is the response for POST /api/v1/reviews.
type ReviewsResponse struct {
	// Success indicates whether the session completed without errors.
	Success bool `json:"success"`

	PlaceURL string `json:"place_url"`

	// Reviews is the accumulated, de-duplicated result set in first-seen order.
	Reviews []Review `json:"reviews"`

	Total int `json:"total"`

	// OutputPath is the CSV file the session appended to.
	OutputPath string `json:"output_path,omitempty"`

	// PanelOpened reports whether a review panel was found, as opposed to
	// scrolling the whole page.
	PanelOpened bool `json:"panel_opened"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false. A failed session may
	// still carry the records flushed before the failure.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// SessionMs is the time spent inside the browser session.
	SessionMs int64 `json:"session_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "idle" or "busy"
	Uptime  string `json:"uptime"`
	Busy    bool   `json:"busy"`
	Version string `json:"version"`
}
