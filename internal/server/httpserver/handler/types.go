package handler

import "time"

// Response is the admin API envelope. /metrics is the only endpoint that
// does not use it.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// StatusResponse summarises the server.
type StatusResponse struct {
	Version     string    `json:"version"`
	Ready       bool      `json:"ready"`
	Snapshot    uint64    `json:"snapshot"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	Root        string    `json:"root,omitempty"`
	Subdomains  int       `json:"subdomains"`
	Mandates    int       `json:"mandates"`
	Invalid     int       `json:"invalid"`
}

// MandateInfo is one mandate's state.
type MandateInfo struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Build       uint64    `json:"build"`
	BuiltAt     time.Time `json:"built_at,omitzero" table:"wide"`
	Root        bool      `json:"root"`
	Subdomains  []string  `json:"subdomains,omitempty"`
	Sources     int       `json:"sources" table:"wide"`
	LastAttempt time.Time `json:"last_attempt,omitzero" table:"wide"`
	LastError   string    `json:"last_error,omitempty"`
	Diagnostics []string  `json:"diagnostics,omitempty" table:"-"`
}

// Route maps a subdomain to its mandate. Subdomain "*" is the root.
type Route struct {
	Subdomain string `json:"subdomain"`
	Mandate   string `json:"mandate"`
}
