package learning

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrStoreUnavailable is the cause of any failed store read or write.
// Adapters wrap it with engine details.
var ErrStoreUnavailable = errors.New("progress store unavailable")

type (
	// ProgressStore persists progress Records keyed by (user, lesson).
	ProgressStore interface {
		// Load returns the user's stored Snapshot; lessons without a stored
		// row are simply absent from the map.
		Load(ctx context.Context, userID string) (Snapshot, error)
		// Upsert creates or overwrites the record for (userID, lessonID).
		// Last write wins; there is no version check.
		Upsert(ctx context.Context, userID, lessonID string, rec Record) error
	}

	// SaveError aggregates per-lesson upsert failures. One lesson's failure
	// never blocks the others; all of them are reported here.
	SaveError struct {
		Failed map[string]error
	}
)

func (e *SaveError) Error() string {
	return "saving progress failed for lessons: " + strings.Join(e.LessonIDs(), ", ")
}

// LessonIDs returns the ids of the lessons whose upsert failed, sorted.
func (e *SaveError) LessonIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemoryStore is a mutex-guarded in-memory ProgressStore. It backs the local
// fallback cache and the tests; it never fails.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

var _ ProgressStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

func (s *MemoryStore) Load(ctx context.Context, userID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[userID].Clone(), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, userID, lessonID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[userID]
	if !ok {
		snap = make(Snapshot)
		s.snapshots[userID] = snap
	}
	snap[lessonID] = rec
	return nil
}
