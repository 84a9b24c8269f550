package domain

import (
	"encoding"
	"strings"
	"time"
)

type TaskState string

const (
	StatePending   TaskState = "PENDING"
	StateRunning   TaskState = "RUNNING"
	StateCompleted TaskState = "COMPLETED"
	StateFailed    TaskState = "FAILED"
)

// Terminal reports whether no further state transitions are possible.
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var (
	_ encoding.BinaryMarshaler = TaskState("")
	_ encoding.TextMarshaler   = TaskState("")
)

func (s TaskState) MarshalBinary() ([]byte, error) { return []byte(string(s)), nil }
func (s TaskState) MarshalText() ([]byte, error)   { return []byte(string(s)), nil }

// Task is one end-to-end investigation: a submitted query plus the lifecycle
// state the pipeline drives it through. ProgressLog is append-only and
// Findings is written exactly once, at the transition to COMPLETED.
type Task struct {
	ID           string    `json:"taskId"`
	State        TaskState `json:"state"`
	ProgressLog  []string  `json:"progressLog"`
	Findings     []Finding `json:"findings"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Webhook      string    `json:"webhook,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// QueryPayload is the user input for an investigation. All fields are
// optional; an all-empty payload falls back to a default query.
type QueryPayload struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	CVE         string `json:"cve,omitempty"`
	Keyword     string `json:"keyword,omitempty"`
}

// DefaultQuery is used when no payload field is set.
const DefaultQuery = "cybersecurity osint"

// BuildQuery concatenates the non-empty fields with their designated
// prefixes, space-joined, in payload order.
func (p QueryPayload) BuildQuery() string {
	var parts []string
	if v := strings.TrimSpace(p.PhoneNumber); v != "" {
		parts = append(parts, "phone:"+v)
	}
	if v := strings.TrimSpace(p.Identifier); v != "" {
		parts = append(parts, "id:"+v)
	}
	if v := strings.TrimSpace(p.CVE); v != "" {
		parts = append(parts, "CVE:"+v)
	}
	if v := strings.TrimSpace(p.Keyword); v != "" {
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return DefaultQuery
	}
	return strings.Join(parts, " ")
}
