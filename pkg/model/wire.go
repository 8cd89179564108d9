package model

// PublishResponse is the body returned by the remote snapshot endpoint
// on success.
type PublishResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

// PublishErrorResponse is the body returned by the remote snapshot
// endpoint on failure.
type PublishErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
}
