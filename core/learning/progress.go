package learning

import "time"

type (
	// Record tracks one user's progress through one lesson. The zero value is
	// the implicit initial state of every lesson. Completed implies
	// QuizCompleted; QuizScore is stored for reporting but never read back
	// into unlock logic.
	Record struct {
		Completed     bool      `json:"completed"`
		CurrentStep   int       `json:"current_step"`
		QuizCompleted bool      `json:"quiz_completed"`
		QuizScore     int       `json:"quiz_score"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	// Snapshot maps lesson ids to progress Records for one user.
	Snapshot map[string]Record
)

// Get is total: lessons absent from the snapshot read as the zero Record,
// never as "unknown".
func (s Snapshot) Get(lessonID string) Record {
	return s[lessonID]
}

func (s Snapshot) CompletedCount() int {
	var n int
	for _, rec := range s {
		if rec.Completed {
			n++
		}
	}
	return n
}

func (s Snapshot) Clone() Snapshot {
	clone := make(Snapshot, len(s))
	for id, rec := range s {
		clone[id] = rec
	}
	return clone
}

// Unlocked reports whether a lesson may be entered. The first lesson in
// catalog order is always unlocked; any other lesson is unlocked iff the
// immediately preceding lesson is completed. A strict linear chain: no
// branching, recomputed on every read, never persisted.
func Unlocked(lessonID string, snap Snapshot, order []string) bool {
	for i, id := range order {
		if id != lessonID {
			continue
		}
		if i == 0 {
			return true
		}
		return snap.Get(order[i-1]).Completed
	}
	return false
}
