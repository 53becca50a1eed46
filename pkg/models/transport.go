package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is returned by the health probe
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// StatusResponse is returned by the root route
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
