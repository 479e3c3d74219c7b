package kvdb

import (
	"errors"
	"fmt"
	"time"
)

const (
	DocumentsBucket = "documents"
	RunsBucket      = "runs"
	RequestsBucket  = "requests"
	IndexedBucket   = "indexed"
)

var buckets = []string{DocumentsBucket, RunsBucket, RequestsBucket, IndexedBucket}

var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
)

type InvalidKeyError struct {
	Key    string
	Reason string
}
type NotFoundError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %s: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusPersisted  Status = "persisted"
	StatusFailed     Status = "failed"
)

// DocumentStatus is the ledger entry kept per external document id.
type DocumentStatus struct {
	Status    Status    `json:"status"`
	State     string    `json:"state,omitempty"`
	Error     string    `json:"error,omitempty"`
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RunStatus struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	SearchTerm string    `json:"search_term"`
	Found      int       `json:"found"`
	Selected   int       `json:"selected"`
	Persisted  int       `json:"persisted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// IndexMetadata records when a stored document was last written to the search index.
type IndexMetadata struct {
	LastIndexed time.Time `json:"last_indexed"`
}
