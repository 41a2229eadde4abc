// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
)

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct{}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{}
}

// IsValidURL checks if a URL is an absolute http or https URL.
func (h *HTTPHelper) IsValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// BuildHeaders creates HTTP headers with defaults.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	// Add default headers
	headers.Add("User-Agent", "qnews-collector/1.0")
	headers.Add("Accept", "application/json")

	// Add custom headers
	for key, value := range customHeaders {
		headers.Add(key, value)
	}

	return headers
}
