package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Records   int    `json:"records"`
	Districts int    `json:"districts"`
	Events    string `json:"events"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ListResponse is a selector vocabulary
type ListResponse struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

// NewListResponse wraps items, never returning a nil slice
func NewListResponse(items []string) ListResponse {
	if items == nil {
		items = []string{}
	}
	return ListResponse{Items: items, Count: len(items)}
}
