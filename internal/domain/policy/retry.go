package policy

import "time"

// Retry is the attempt and backoff policy the job store applies to failed
// reminder deliveries.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      int
}

// DefaultRetry returns 5 attempts with delays of 5s, 25s, 125s, 625s and 3125s.
func DefaultRetry() Retry {
	return Retry{
		MaxAttempts: 5,
		BaseDelay:   5 * time.Second,
		Factor:      5,
	}
}

// Delay returns the wait after the given failed attempt (1-based):
// BaseDelay * Factor^(attempt-1).
func (r Retry) Delay(attempt int) time.Duration {
	r = r.normalized()
	if attempt < 1 {
		attempt = 1
	}
	delay := r.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(r.Factor)
	}
	return delay
}

// Delays returns the backoff sequence for every attempt of the policy.
func (r Retry) Delays() []time.Duration {
	r = r.normalized()
	delays := make([]time.Duration, r.MaxAttempts)
	for i := range delays {
		delays[i] = r.Delay(i + 1)
	}
	return delays
}

// Exhausted reports whether a job that has made attempts attempts may not be retried.
func (r Retry) Exhausted(attempts, maxAttempts int) bool {
	if maxAttempts <= 0 {
		maxAttempts = r.normalized().MaxAttempts
	}
	return attempts >= maxAttempts
}

func (r Retry) normalized() Retry {
	def := DefaultRetry()
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = def.MaxAttempts
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = def.BaseDelay
	}
	if r.Factor < 1 {
		r.Factor = def.Factor
	}
	return r
}
