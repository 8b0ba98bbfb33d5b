package model

// WebSocket message types
const (
	WSMessageTypeStatus = "status"
	WSMessageTypeError  = "error"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage carries a job status transition
type WSStatusMessage struct {
	Type    string    `json:"type"`
	JobID   string    `json:"jobId"`
	JobName string    `json:"jobName"`
	Status  JobStatus `json:"status"`
	QueueID *string   `json:"queueId,omitempty"`
	Error   *string   `json:"error,omitempty"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
