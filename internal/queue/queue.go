// Package queue models the nightly work queue: capability requests
// waiting for a generation and validation attempt. The queue file is a
// whole-snapshot JSON document, like the registry.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Item statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Item is a single queued capability request.
type Item struct {
	ID          string    `json:"id"`
	Capability  string    `json:"capability"`
	FirstSeen   time.Time `json:"first_seen"`
	Occurrences int       `json:"occurrences"`
	Context     string    `json:"context,omitempty"`
	Status      string    `json:"status"`
}

// NewItem creates a pending item for a capability.
func NewItem(capability, context string) *Item {
	return &Item{
		ID:          uuid.NewString(),
		Capability:  capability,
		FirstSeen:   time.Now().UTC(),
		Occurrences: 1,
		Context:     context,
		Status:      StatusPending,
	}
}

// Queue is the persisted nightly queue.
type Queue struct {
	Items     []*Item   `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load reads the queue file. A missing file is an empty queue.
func Load(path string) (*Queue, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Queue{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	var q Queue
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("corrupt queue file %s: %w", path, err)
	}
	return &q, nil
}

// Save writes the queue back to path atomically.
func Save(path string, q *Queue) error {
	q.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding queue: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	return os.Rename(tmp, path)
}

// Pending returns the items still waiting for processing.
func (q *Queue) Pending() []*Item {
	var out []*Item
	for _, item := range q.Items {
		if item.Status == StatusPending {
			out = append(out, item)
		}
	}
	return out
}
