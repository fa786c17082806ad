package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNoResumeState is returned by a ResumeStore that has nothing saved.
var ErrNoResumeState = errors.New("no resume state")

// ResumeState is what a new process needs to resume a session.
type ResumeState struct {
	SessionID string    `bson:"session_id" json:"session_id"`
	Sequence  int64     `bson:"seq"        json:"seq"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ResumeStore persists the session so that a restarted process can send a
// Resume instead of a fresh Identify.
type ResumeStore interface {
	LoadResume(ctx context.Context) (ResumeState, error)
	SaveResume(ctx context.Context, state ResumeState) error
	ClearResume(ctx context.Context) error
}

// MemoryResumeStore is a ResumeStore that keeps the state in memory. It is
// mostly useful for tests.
type MemoryResumeStore struct {
	mu    sync.Mutex
	state ResumeState
}

var _ ResumeStore = (*MemoryResumeStore)(nil)

// LoadResume implements ResumeStore.
func (s *MemoryResumeStore) LoadResume(ctx context.Context) (ResumeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.SessionID == "" {
		return ResumeState{}, ErrNoResumeState
	}
	return s.state, nil
}

// SaveResume implements ResumeStore.
func (s *MemoryResumeStore) SaveResume(ctx context.Context, state ResumeState) error {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// ClearResume implements ResumeStore.
func (s *MemoryResumeStore) ClearResume(ctx context.Context) error {
	s.mu.Lock()
	s.state = ResumeState{}
	s.mu.Unlock()
	return nil
}
