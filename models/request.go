package models

import "strings"

// ReviewsRequest is the payload for POST /api/v1/reviews.
type ReviewsRequest struct {
	// PlaceURL is the listing page to read reviews from. Required.
	PlaceURL string `json:"place_url" binding:"required,url"`

	// MaxReviews caps the number of records collected.
	// Default: the server's configured MAX_REVIEWS.
	MaxReviews int `json:"max_reviews,omitempty" binding:"omitempty,min=1,max=100000"`

	// OutputFilename names the CSV written under the output directory.
	// ".csv" is appended when missing. Default: the server's configured name.
	OutputFilename string `json:"output_filename,omitempty"`

	// Mode must be empty or "true": interactive modes need a terminal.
	Mode string `json:"mode,omitempty" binding:"omitempty,oneof=true"`

	// MaxAge allows serving a cached result younger than MaxAge milliseconds.
	// 0 (default) always runs a fresh session.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults fills unset fields from server-side defaults.
func (r *ReviewsRequest) Defaults(maxReviews int, outputFilename string) {
	if r.MaxReviews == 0 {
		r.MaxReviews = maxReviews
	}
	if r.OutputFilename == "" {
		r.OutputFilename = outputFilename
	}
	r.OutputFilename = EnsureCSVSuffix(r.OutputFilename)
	if r.Mode == "" {
		r.Mode = "true"
	}
}

// EnsureCSVSuffix appends ".csv" unless the name already ends with it.
func EnsureCSVSuffix(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ".csv") {
		name += ".csv"
	}
	return name
}
