package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/talkoren/kehila/core/learning"
)

type progressRow struct {
	UserID        string    `db:"user_id"`
	LessonID      string    `db:"lesson_id"`
	Completed     bool      `db:"completed"`
	CurrentStep   int       `db:"current_step"`
	QuizCompleted bool      `db:"quiz_completed"`
	QuizScore     null.Int  `db:"quiz_score"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (row progressRow) record() learning.Record {
	return learning.Record{
		Completed:     row.Completed,
		CurrentStep:   row.CurrentStep,
		QuizCompleted: row.QuizCompleted,
		QuizScore:     row.QuizScore.Int,
		UpdatedAt:     row.UpdatedAt,
	}
}

// progressStore persists learning progress in the learning_progress table,
// one row per (user, lesson). All failures wrap learning.ErrStoreUnavailable
// so callers can degrade without inspecting driver errors.
type progressStore struct {
	db *sqlx.DB
}

var _ learning.ProgressStore = (*progressStore)(nil) // interface compliance check

func NewProgressStore(db *sql.DB) *progressStore {
	return &progressStore{db: sqlx.NewDb(db, "postgres")}
}

func (store *progressStore) Load(ctx context.Context, userID string) (learning.Snapshot, error) {
	var rows []progressRow
	query := `
		SELECT user_id, lesson_id, completed, current_step, quiz_completed, quiz_score, updated_at
		FROM learning_progress WHERE user_id = $1`
	if err := store.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrapf(learning.ErrStoreUnavailable, "loading progress: %v", err)
	}

	snap := make(learning.Snapshot, len(rows))
	for _, row := range rows {
		snap[row.LessonID] = row.record()
	}
	return snap, nil
}

func (store *progressStore) Upsert(ctx context.Context, userID, lessonID string, rec learning.Record) error {
	row := progressRow{
		UserID:        userID,
		LessonID:      lessonID,
		Completed:     rec.Completed,
		CurrentStep:   rec.CurrentStep,
		QuizCompleted: rec.QuizCompleted,
		QuizScore:     null.NewInt(rec.QuizScore, rec.QuizCompleted),
		UpdatedAt:     rec.UpdatedAt,
	}

	query := `
		INSERT INTO learning_progress (user_id, lesson_id, completed, current_step, quiz_completed, quiz_score, updated_at)
		VALUES (:user_id, :lesson_id, :completed, :current_step, :quiz_completed, :quiz_score, :updated_at)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			current_step = EXCLUDED.current_step,
			quiz_completed = EXCLUDED.quiz_completed,
			quiz_score = EXCLUDED.quiz_score,
			updated_at = EXCLUDED.updated_at`
	if _, err := store.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.Wrapf(learning.ErrStoreUnavailable, "upserting progress: %v", err)
	}
	return nil
}
