package learning

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/talkoren/kehila/core"
)

var NowFunc = time.Now // mockable

type (
	Service struct {
		catalog  *Catalog
		store    ProgressStore
		cache    ProgressStore
		logger   core.Logger
		sessions *sessionRegistry
	}

	// LessonStatus is a lesson together with its unlock/completion state for
	// one user.
	LessonStatus struct {
		Lesson    Lesson
		Unlocked  bool
		Completed bool
		Questions int
	}

	// Overview is the per-user Learning Center landing state.
	Overview struct {
		Lessons   []LessonStatus
		Completed int
		Total     int
		Percent   int
		Degraded  bool
	}

	// CompletionUpdate reports the outcome of persisting a passing result.
	// SaveErr is non-nil when one or more per-lesson upserts failed; the
	// session itself is never failed by persistence problems.
	CompletionUpdate struct {
		Record       Record
		AllCompleted bool
		SaveErr      *SaveError
	}
)

// NewService wires the progression engine: the catalog, the durable store
// and an internal in-memory fallback cache mirroring every successful read
// and write.
func NewService(catalog *Catalog, store ProgressStore, logger core.Logger) *Service {
	return &Service{
		catalog:  catalog,
		store:    store,
		cache:    NewMemoryStore(),
		logger:   logger,
		sessions: newSessionRegistry(),
	}
}

func (svc *Service) Catalog() *Catalog { return svc.catalog }

// Progress loads the user's Snapshot from the remote store. On store failure
// it degrades to the local cache — reported via the degraded flag and a
// logged warning, never silently. The result holds one entry per catalog
// lesson; rows missing from the store read as the zero Record.
func (svc *Service) Progress(ctx context.Context, userID string) (snap Snapshot, degraded bool) {
	snap, err := svc.store.Load(ctx, userID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("loading progress for user %s failed; falling back to local cache", userID), err)
		snap, _ = svc.cache.Load(ctx, userID)
		degraded = true
	}
	if snap == nil {
		snap = make(Snapshot, svc.catalog.Len())
	}
	for _, id := range svc.catalog.Order() {
		if _, ok := snap[id]; !ok {
			snap[id] = Record{}
		}
	}
	if !degraded {
		for id, rec := range snap {
			_ = svc.cache.Upsert(ctx, userID, id, rec)
		}
	}
	return snap, degraded
}

// save upserts every lesson entry of the snapshot independently: a full
// overwrite-by-upsert, idempotent, last-write-wins per lesson key. Failures
// are collected per lesson and reported in aggregate.
func (svc *Service) save(ctx context.Context, userID string, snap Snapshot) *SaveError {
	failed := make(map[string]error)
	for _, id := range svc.catalog.Order() {
		rec, ok := snap[id]
		if !ok {
			continue
		}
		_ = svc.cache.Upsert(ctx, userID, id, rec)
		if err := svc.store.Upsert(ctx, userID, id, rec); err != nil {
			svc.logger.Error(fmt.Sprintf("saving progress for user %s, lesson %s failed", userID, id), err)
			failed[id] = err
		}
	}
	if len(failed) > 0 {
		return &SaveError{Failed: failed}
	}
	return nil
}

// Overview returns the ordered lesson list with unlock/completion state and
// the overall completion percentage.
func (svc *Service) Overview(ctx context.Context, userID string) Overview {
	snap, degraded := svc.Progress(ctx, userID)
	order := svc.catalog.Order()

	ov := Overview{
		Lessons:   make([]LessonStatus, 0, svc.catalog.Len()),
		Completed: snap.CompletedCount(),
		Total:     svc.catalog.Len(),
		Degraded:  degraded,
	}
	for _, l := range svc.catalog.Lessons() {
		ov.Lessons = append(ov.Lessons, LessonStatus{
			Lesson:    l,
			Unlocked:  Unlocked(l.ID, snap, order),
			Completed: snap.Get(l.ID).Completed,
			Questions: len(svc.catalog.questions[l.ID]),
		})
	}
	if ov.Total > 0 {
		ov.Percent = int(math.Round(float64(ov.Completed) / float64(ov.Total) * 100))
	}
	return ov
}

// Open starts a lesson session for the user, replacing any previously open
// one. It fails with ErrLessonNotFound for unknown lessons and
// ErrLessonLocked when the unlock policy denies access.
func (svc *Service) Open(ctx context.Context, userID, lessonID string) (*Session, error) {
	if _, err := svc.catalog.Lesson(lessonID); err != nil {
		return nil, err
	}
	snap, _ := svc.Progress(ctx, userID)
	if !Unlocked(lessonID, snap, svc.catalog.Order()) {
		return nil, ErrLessonLocked
	}
	sess := newSession(lessonID, svc.catalog.Questions(lessonID))
	svc.sessions.put(userID, sess)
	return sess, nil
}

// Session returns the user's open lesson session, or ErrNoSession.
func (svc *Service) Session(userID string) (*Session, error) {
	return svc.sessions.get(userID)
}

// Close discards the user's open session, if any, without side effects:
// unsaved answers are intentionally lost, only passing results are durable.
func (svc *Service) Close(userID string) {
	svc.sessions.del(userID)
}

// RecordPass merges a passing quiz result into the user's snapshot and
// persists it. Failing attempts must never reach here: the snapshot is left
// untouched on a fail. Persistence failures are reported in the update, not
// as an error — the just-earned completion may be lost on reload and the
// caller should surface a retry/warning affordance.
func (svc *Service) RecordPass(ctx context.Context, userID string, sess *Session) (CompletionUpdate, error) {
	if !sess.Revealed || !sess.Passed() {
		return CompletionUpdate{}, ErrQuizNotActive
	}

	snap, _ := svc.Progress(ctx, userID)
	rec := snap.Get(sess.LessonID)
	rec.Completed = true
	rec.QuizCompleted = true
	rec.CurrentStep = int(StepQuiz)
	rec.QuizScore = sess.LastScore
	rec.UpdatedAt = NowFunc().UTC()
	snap[sess.LessonID] = rec

	return CompletionUpdate{
		Record:       rec,
		AllCompleted: snap.CompletedCount() == svc.catalog.Len(),
		SaveErr:      svc.save(ctx, userID, snap),
	}, nil
}

// sessionRegistry tracks the open lesson session per user: one open lesson
// view per user, opening another lesson replaces the previous session.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*Session)}
}

func (r *sessionRegistry) put(userID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = sess
}

func (r *sessionRegistry) get(userID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[userID]; ok {
		return sess, nil
	}
	return nil, ErrNoSession
}

func (r *sessionRegistry) del(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}
