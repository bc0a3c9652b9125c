package types

import (
	"net/http"
	"time"
)

// Response is the raw result of fetching a page over HTTP or from disk.
type Response struct {
	// URL is the address that was requested.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code, or 200 for local files.
	StatusCode int

	Headers     http.Header
	Body        []byte
	ContentType string

	FetchDuration time.Duration
	FetchedAt     time.Time
}

// NewResponse creates a Response from an http.Response.
func NewResponse(rawURL string, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	return &Response{
		URL:           rawURL,
		FinalURL:      httpResp.Request.URL.String(),
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}
