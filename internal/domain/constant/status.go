package constant

// BookingStatus defines the lifecycle states of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether s is one of the known booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// JobState defines the states a reminder job moves through in the job store.
//
// A job in backoff after a failed attempt is stored as JobDelayed with a
// non-zero attempt count; "retrying" is not persisted as its own state.
type JobState string

const (
	JobWaiting   JobState = "waiting"   // due now, not yet claimed
	JobDelayed   JobState = "delayed"   // due at RunAt (initial delay or retry backoff)
	JobActive    JobState = "active"    // claimed by a worker
	JobCompleted JobState = "completed" // delivered, or skipped as duplicate/stale
	JobFailed    JobState = "failed"    // attempts exhausted
	JobRemoved   JobState = "removed"   // cancelled; the row no longer exists
)

// PendingJobStates are the states a cancellation has to cover.
var PendingJobStates = []JobState{JobWaiting, JobDelayed, JobActive}

// AllJobStates are the states reported by queue statistics and status queries.
var AllJobStates = []JobState{JobWaiting, JobActive, JobCompleted, JobFailed, JobDelayed}

// Terminal reports whether no further transition happens automatically.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobRemoved
}
