package tasks

import (
	"encoding/json"

	"gitlab.com/judge-dispatch.net/internal/domain"
)

// PushTaskRequest represents a request to queue a task. An empty id gets a generated one.
type PushTaskRequest struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	AtFront bool            `json:"atFront"`
}

// PushTaskResponse represents a response to a push task request
type PushTaskResponse struct {
	Task *domain.Task `json:"task"`
}
