package domain

import (
	"encoding/json"
	"time"
)

// TaskMeta is the correlation info a worker echoes back with every progress report
type TaskMeta struct {
	TaskID string `json:"taskId" mapstructure:"taskId" msgpack:"taskId"`
	Type   string `json:"type" mapstructure:"type" msgpack:"type"`
}

// Task is a unit of judging work. Payload is opaque to the dispatcher.
type Task struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Meta    TaskMeta        `json:"meta"`
}

// DeadLetter is a task that exceeded its delivery budget. It is kept for reporting only.
type DeadLetter struct {
	Task       *Task     `json:"task"`
	Deliveries int       `json:"deliveries"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

type QueueStats struct {
	Requeued         int `json:"requeued"`
	Backlog          int `json:"backlog"`
	WaitingConsumers int `json:"waitingConsumers"`
	DeadLetters      int `json:"deadLetters"`
}

// DeadLetteredProgress is the progress payload handed to sinks when a task is dead lettered
var DeadLetteredProgress = json.RawMessage(`{"status":"DEAD_LETTERED"}`)
