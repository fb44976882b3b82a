// Package operation provides the domain model for remote capture requests.
// An Operation moves through a linear lifecycle:
//
//	pending → capturing → uploading → complete | partial | failed.
//
// partial means the photo was pushed but no download link could be
// fetched. The store is the authoritative source of truth for operation
// state; HTTP handlers read and write exclusively through it.
package operation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCapturing Status = "capturing"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

var ErrNotFound = errors.New("operation not found")

// Operation represents a single remote capture cycle.
type Operation struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Path is the local file written by the camera, set once captured.
	Path string `json:"path,omitempty"`

	// RemoteID is the object key, set once the photo has been pushed.
	RemoteID string `json:"remote_id,omitempty"`

	// PublicURL is set once the operation reaches StatusComplete.
	PublicURL string `json:"public_url,omitempty"`

	// Error is non-empty if the operation reached StatusFailed or
	// StatusPartial.
	Error string `json:"error,omitempty"`
}

// Store is the interface for persisting and retrieving operations.
type Store interface {
	Create() (*Operation, error)
	Get(id string) (*Operation, error)
	MarkCapturing(id string) error
	MarkUploading(id, path string) error
	MarkComplete(id, remoteID, publicURL string) error
	MarkPartial(id, remoteID string, err error) error
	MarkFailed(id string, err error) error
}

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]*Operation
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]*Operation), now: time.Now}
}

func (s *MemoryStore) Create() (*Operation, error) {
	now := s.now()
	op := &Operation{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.ops[op.ID] = op
	s.mu.Unlock()

	copy := *op
	return &copy, nil
}

func (s *MemoryStore) Get(id string) (*Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("operation %q: %w", id, ErrNotFound)
	}
	// Return a copy to prevent callers from mutating internal state.
	copy := *op
	return &copy, nil
}

func (s *MemoryStore) MarkCapturing(id string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusCapturing
	})
}

func (s *MemoryStore) MarkUploading(id, path string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusUploading
		op.Path = path
	})
}

func (s *MemoryStore) MarkComplete(id, remoteID, publicURL string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusComplete
		op.RemoteID = remoteID
		op.PublicURL = publicURL
	})
}

func (s *MemoryStore) MarkPartial(id, remoteID string, err error) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusPartial
		op.RemoteID = remoteID
		op.Error = err.Error()
	})
}

func (s *MemoryStore) MarkFailed(id string, err error) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusFailed
		op.Error = err.Error()
	})
}

func (s *MemoryStore) update(id string, fn func(*Operation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return fmt.Errorf("operation %q: %w", id, ErrNotFound)
	}
	fn(op)
	op.UpdatedAt = s.now()
	return nil
}
