package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/policy"
	"bookingreminder/internal/domain/repository"
	appErrors "bookingreminder/internal/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimRetries bounds how often ClaimNext re-selects after losing a race.
const claimRetries = 3

type reminderJobStore struct {
	db    *gorm.DB
	retry policy.Retry
}

// NewReminderJobStore creates a job store on top of the reminder_job table.
// The retry policy decides what Fail does with a failed attempt.
func NewReminderJobStore(db *gorm.DB, retry policy.Retry) repository.ReminderJobStore {
	return &reminderJobStore{db: db, retry: retry}
}

// Enqueue stores job to become due after delay, using the job ID as idempotency key.
func (r *reminderJobStore) Enqueue(ctx context.Context, job *entity.ReminderJob, delay time.Duration) (bool, error) {
	if job.ID == "" {
		return false, fmt.Errorf("%w: job id is required", appErrors.ErrScheduling)
	}
	r.prepare(job, delay)

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.ReminderJob
		err := tx.Where("id = ?", job.ID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(job)
			if res.Error != nil {
				return res.Error
			}
			created = res.RowsAffected == 1
			return nil
		case err != nil:
			return err
		case existing.State.Terminal():
			// A finished job keeps its row for inspection; scheduling the same
			// id again starts it over.
			if err := tx.Save(job).Error; err != nil {
				return err
			}
			created = true
			return nil
		default:
			return nil
		}
	})
	if err != nil {
		return false, fmt.Errorf("failed to enqueue reminder job %s: %w", job.ID, err)
	}
	return created, nil
}

func (r *reminderJobStore) prepare(job *entity.ReminderJob, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.CreatedAt
	job.DelayMs = delay.Milliseconds()
	job.RunAt = job.CreatedAt.Add(delay)
	job.Attempts = 0
	job.LastError = ""
	job.FinishedAt = nil
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = r.retry.MaxAttempts
	}
	if delay > 0 {
		job.State = constant.JobDelayed
	} else {
		job.State = constant.JobWaiting
	}
}

// Remove deletes a job by its ID.
func (r *reminderJobStore) Remove(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ReminderJob{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove reminder job %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListByStates returns every job in one of the given states, or all jobs when none are given.
func (r *reminderJobStore) ListByStates(ctx context.Context, states ...constant.JobState) ([]*entity.ReminderJob, error) {
	var jobs []*entity.ReminderJob
	q := r.db.WithContext(ctx).Order("booking_id asc").Order("ordinal asc")
	if len(states) > 0 {
		q = q.Where("state IN ?", states)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminder jobs by states %v: %w", states, err)
	}
	return jobs, nil
}

// ListByBooking returns the jobs of bookingID in one of the given states, using the booking_id index.
func (r *reminderJobStore) ListByBooking(ctx context.Context, bookingID string, states ...constant.JobState) ([]*entity.ReminderJob, error) {
	var jobs []*entity.ReminderJob
	q := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("ordinal asc")
	if len(states) > 0 {
		q = q.Where("state IN ?", states)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminder jobs of booking %s: %w", bookingID, err)
	}
	return jobs, nil
}

// GetState returns the state of a job.
func (r *reminderJobStore) GetState(ctx context.Context, id string) (constant.JobState, error) {
	var job entity.ReminderJob
	if err := r.db.WithContext(ctx).Select("state").Where("id = ?", id).Take(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", appErrors.ErrJobNotFound, id)
		}
		return "", fmt.Errorf("failed to get state of reminder job %s: %w", id, err)
	}
	return job.State, nil
}

// Counts returns the number of jobs per state; every requested state is present in the result.
func (r *reminderJobStore) Counts(ctx context.Context, states ...constant.JobState) (map[constant.JobState]int64, error) {
	if len(states) == 0 {
		states = constant.AllJobStates
	}
	var rows []struct {
		State constant.JobState
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.ReminderJob{}).
		Select("state, count(*) as count").
		Where("state IN ?", states).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reminder jobs: %w", err)
	}

	counts := make(map[constant.JobState]int64, len(states))
	for _, s := range states {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}

// ClaimNext moves the oldest due job to active and increments its attempt count.
func (r *reminderJobStore) ClaimNext(ctx context.Context, now time.Time) (*entity.ReminderJob, error) {
	now = now.UTC()
	for i := 0; i < claimRetries; i++ {
		var job entity.ReminderJob
		err := r.db.WithContext(ctx).
			Where("state IN ? AND run_at <= ?", []constant.JobState{constant.JobWaiting, constant.JobDelayed}, now).
			Order("run_at asc").
			Take(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to select due reminder job: %w", err)
		}

		// Conditional update: only one claimer can move the job out of its current state.
		res := r.db.WithContext(ctx).
			Model(&entity.ReminderJob{}).
			Where("id = ? AND state = ?", job.ID, job.State).
			Updates(map[string]any{
				"state":      constant.JobActive,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim reminder job %s: %w", job.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			job.State = constant.JobActive
			job.Attempts++
			job.UpdatedAt = now
			return &job, nil
		}
	}
	return nil, nil
}

// Complete marks an active job completed. A job removed while it was running is left alone.
func (r *reminderJobStore) Complete(ctx context.Context, id string, now time.Time) error {
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&entity.ReminderJob{}).
		Where("id = ? AND state = ?", id, constant.JobActive).
		Updates(map[string]any{
			"state":       constant.JobCompleted,
			"last_error":  "",
			"finished_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to complete reminder job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s is no longer active", appErrors.ErrJobNotFound, id)
	}
	return nil
}

// Fail records a failed attempt and either delays the job for its backoff or marks it failed.
func (r *reminderJobStore) Fail(ctx context.Context, id string, cause error, now time.Time) (constant.JobState, error) {
	now = now.UTC()
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	var next constant.JobState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job entity.ReminderJob
		if err := tx.Where("id = ?", id).Take(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", appErrors.ErrJobNotFound, id)
			}
			return err
		}
		if job.State != constant.JobActive {
			next = job.State
			return nil
		}

		updates := map[string]any{
			"last_error": lastError,
			"updated_at": now,
		}
		if r.retry.Exhausted(job.Attempts, job.MaxAttempts) {
			next = constant.JobFailed
			updates["finished_at"] = now
		} else {
			next = constant.JobDelayed
			updates["run_at"] = now.Add(r.retry.Delay(job.Attempts))
		}
		updates["state"] = next
		return tx.Model(&entity.ReminderJob{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, appErrors.ErrJobNotFound) {
			return constant.JobRemoved, err
		}
		return "", fmt.Errorf("failed to record failure of reminder job %s: %w", id, err)
	}
	return next, nil
}

// RequeueActive moves jobs left active by a previous process back to waiting.
func (r *reminderJobStore) RequeueActive(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	res := r.db.WithContext(ctx).
		Model(&entity.ReminderJob{}).
		Where("state = ?", constant.JobActive).
		Updates(map[string]any{
			"state":      constant.JobWaiting,
			"run_at":     now,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to requeue active reminder jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteFinishedBefore removes jobs in state whose finished_at is older than threshold.
func (r *reminderJobStore) DeleteFinishedBefore(ctx context.Context, state constant.JobState, threshold time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("state = ? AND finished_at < ?", state, threshold.UTC()).
		Delete(&entity.ReminderJob{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete %s reminder jobs older than %v: %w", state, threshold, res.Error)
	}
	return res.RowsAffected, nil
}
