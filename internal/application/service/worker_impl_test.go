package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/policy"
	"bookingreminder/internal/domain/repository"
	"bookingreminder/internal/infrastructure/scheduler"
	appErrors "bookingreminder/internal/pkg/errors"
	"bookingreminder/internal/pkg/logger"
)

func newTestWorker(t *testing.T, store repository.ReminderJobStore, transport MessageTransport, clock *fakeClock) (*reminderWorker, *recordingMetrics) {
	t.Helper()
	metrics := newRecordingMetrics()
	cfg := WorkerConfig{}
	if clock != nil {
		cfg.Now = clock.Now
	}
	w := NewReminderWorker(store, transport, nil, scheduler.NewScheduler(logger.NewNop()), cfg, metrics, logger.NewNop())
	return w.(*reminderWorker), metrics
}

func enqueueDue(t *testing.T, store repository.ReminderJobStore, now time.Time, id string) *entity.ReminderJob {
	t.Helper()
	job := &entity.ReminderJob{
		ID:        id,
		BookingID: "bk",
		Ordinal:   1,
		Payload: entity.ReminderPayload{
			BookingID:       "bk",
			CustomerName:    "Aiko",
			CustomerPhone:   "+81-90-0000-0000",
			AppointmentTime: now.Add(10 * time.Hour),
		},
		CreatedAt: now,
	}
	created, err := store.Enqueue(context.Background(), job, 0)
	if err != nil || !created {
		t.Fatalf("enqueue %s: created=%v err=%v", id, created, err)
	}
	return job
}

func jobByID(t *testing.T, store repository.ReminderJobStore, id string) *entity.ReminderJob {
	t.Helper()
	jobs, err := store.ListByStates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range jobs {
		if j.ID == id {
			return j
		}
	}
	t.Fatalf("job %s not found", id)
	return nil
}

func dueJob(id string, clock *fakeClock) *entity.ReminderJob {
	return &entity.ReminderJob{
		ID:        id,
		BookingID: "bk",
		Payload: entity.ReminderPayload{
			BookingID:       "bk",
			CustomerName:    "Aiko",
			CustomerPhone:   "+81-90-0000-0000",
			AppointmentTime: clock.Now().Add(2 * time.Hour),
		},
		CreatedAt: clock.Now(),
	}
}

func TestProcessReminderJob_DuplicateSendsOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	transport := okTransport()
	w, metrics := newTestWorker(t, nil, transport, clock)
	job := dueJob("bk-reminder-1", clock)

	for i := 0; i < 2; i++ {
		if err := w.ProcessReminderJob(ctx, job); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if transport.calls() != 1 {
		t.Fatalf("transport calls=%d want 1", transport.calls())
	}
	if metrics.outcome(OutcomeSent) != 1 || metrics.outcome(OutcomeDuplicate) != 1 {
		t.Fatalf("outcomes=%v", metrics.outcomes)
	}
}

func TestProcessReminderJob_StaleAppointmentSkipsSend(t *testing.T) {
	clock := newFakeClock()
	transport := okTransport()
	w, metrics := newTestWorker(t, nil, transport, clock)
	job := dueJob("bk-reminder-1", clock)
	job.Payload.AppointmentTime = clock.Now().Add(-time.Minute)

	if err := w.ProcessReminderJob(context.Background(), job); err != nil {
		t.Fatalf("stale job must succeed, got %v", err)
	}
	if transport.calls() != 0 {
		t.Fatalf("stale job reached the transport")
	}
	if metrics.outcome(OutcomeStale) != 1 {
		t.Fatalf("outcomes=%v", metrics.outcomes)
	}
}

func TestProcessReminderJob_MessageContent(t *testing.T) {
	clock := newFakeClock()
	transport := okTransport()
	w, _ := newTestWorker(t, nil, transport, clock)
	job := dueJob("bk-reminder-1", clock)
	job.Payload.CustomerLineID = "U123"

	if err := w.ProcessReminderJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	msg := transport.sent[0]
	want := fmt.Sprintf("Hi Aiko, this is a reminder of your appointment on %s.",
		job.Payload.AppointmentTime.Format("2006/01/02 15:04"))
	if msg.Body != want || msg.RecipientPhone != "+81-90-0000-0000" || msg.RecipientID != "U123" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestProcessReminderJob_TransportFailures(t *testing.T) {
	cases := map[string]fakeSend{
		"unsuccessful result": {result: SendResult{Success: false, Error: "recipient unreachable"}},
		"transport error":     {err: errors.New("malformed recipient")},
	}
	for name, send := range cases {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			transport := &fakeTransport{script: []fakeSend{send}}
			w, metrics := newTestWorker(t, nil, transport, clock)
			job := dueJob("bk-reminder-1", clock)

			err := w.ProcessReminderJob(context.Background(), job)
			if !errors.Is(err, appErrors.ErrTransport) {
				t.Fatalf("err=%v want ErrTransport", err)
			}
			if metrics.outcome(OutcomeFailed) != 1 {
				t.Fatalf("outcomes=%v", metrics.outcomes)
			}

			// A failed attempt is not remembered as delivered.
			transport.script = []fakeSend{{result: SendResult{Success: true}}}
			if err := w.ProcessReminderJob(context.Background(), job); err != nil {
				t.Fatalf("retry: %v", err)
			}
			if transport.calls() != 2 {
				t.Fatalf("transport calls=%d want 2", transport.calls())
			}
		})
	}
}

type brokenProcessedSet struct{}

func (brokenProcessedSet) Seen(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (brokenProcessedSet) Mark(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func TestProcessReminderJob_ProcessedSetUnavailableStillDelivers(t *testing.T) {
	clock := newFakeClock()
	transport := okTransport()
	w := NewReminderWorker(nil, transport, brokenProcessedSet{}, scheduler.NewScheduler(logger.NewNop()),
		WorkerConfig{Now: clock.Now}, nil, logger.NewNop())

	if err := w.ProcessReminderJob(context.Background(), dueJob("bk-reminder-1", clock)); err != nil {
		t.Fatal(err)
	}
	if transport.calls() != 1 {
		t.Fatalf("transport calls=%d want 1", transport.calls())
	}
}

func TestDispatch_RetriesWithBackoffUntilSuccess(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	failure := fakeSend{result: SendResult{Success: false, Error: "gateway timeout"}}
	transport := &fakeTransport{script: []fakeSend{failure, failure, failure, failure, {result: SendResult{Success: true}}}}
	w, _ := newTestWorker(t, store, transport, clock)
	retry := policy.DefaultRetry()

	enqueueDue(t, store, clock.Now(), "bk-reminder-1")

	for attempt := 1; attempt <= 5; attempt++ {
		if n := w.Dispatch(ctx); n != 1 {
			t.Fatalf("attempt %d: dispatched %d want 1", attempt, n)
		}
		w.wait()
		if attempt == 5 {
			break
		}

		job := jobByID(t, store, "bk-reminder-1")
		if !job.Retrying() || job.Attempts != attempt {
			t.Fatalf("attempt %d: state=%s attempts=%d", attempt, job.State, job.Attempts)
		}
		// Not due again until the backoff has elapsed.
		clock.Advance(retry.Delay(attempt) - time.Millisecond)
		if n := w.Dispatch(ctx); n != 0 {
			t.Fatalf("attempt %d: redelivered before backoff elapsed", attempt)
		}
		clock.Advance(time.Millisecond)
	}

	job := jobByID(t, store, "bk-reminder-1")
	if job.State != constant.JobCompleted || job.Attempts != 5 {
		t.Fatalf("state=%s attempts=%d want completed after 5", job.State, job.Attempts)
	}
	if transport.calls() != 5 {
		t.Fatalf("transport calls=%d want 5", transport.calls())
	}
}

func TestDispatch_FailsAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	transport := &fakeTransport{script: []fakeSend{{result: SendResult{Success: false, Error: "down"}}}}
	w, _ := newTestWorker(t, store, transport, clock)

	enqueueDue(t, store, clock.Now(), "bk-reminder-1")

	for attempt := 1; attempt <= 5; attempt++ {
		if n := w.Dispatch(ctx); n != 1 {
			t.Fatalf("attempt %d: dispatched %d want 1", attempt, n)
		}
		w.wait()
		clock.Advance(time.Hour)
	}

	job := jobByID(t, store, "bk-reminder-1")
	if job.State != constant.JobFailed || job.Attempts != 5 {
		t.Fatalf("state=%s attempts=%d want failed after 5", job.State, job.Attempts)
	}
	if job.LastError == "" {
		t.Fatalf("last error not recorded")
	}

	clock.Advance(24 * time.Hour)
	if n := w.Dispatch(ctx); n != 0 {
		t.Fatalf("failed job dispatched again")
	}
	if transport.calls() != 5 {
		t.Fatalf("transport calls=%d want 5", transport.calls())
	}
}

func TestDispatch_BoundedConcurrency(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	transport := okTransport()
	transport.release = make(chan struct{})
	w, _ := newTestWorker(t, store, transport, clock)

	for i := 1; i <= 8; i++ {
		enqueueDue(t, store, clock.Now(), entity.ReminderJobID(fmt.Sprintf("bk%d", i), 1))
	}

	if n := w.Dispatch(ctx); n != 5 {
		t.Fatalf("dispatched %d want 5 (concurrency limit)", n)
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[constant.JobActive] != 5 || counts[constant.JobWaiting] != 3 {
		t.Fatalf("counts=%v", counts)
	}

	close(transport.release)
	w.wait()
	if n := w.Dispatch(ctx); n != 3 {
		t.Fatalf("second dispatch %d want 3", n)
	}
	w.wait()

	counts, err = store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[constant.JobCompleted] != 8 {
		t.Fatalf("counts=%v want 8 completed", counts)
	}
}

func TestDispatch_RateLimitPerWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	transport := okTransport()
	const (
		limit  = 5
		window = 200 * time.Millisecond
		jobs   = 12
	)
	w := NewReminderWorker(store, transport, nil, scheduler.NewScheduler(logger.NewNop()), WorkerConfig{
		Concurrency: jobs,
		RateLimit:   limit,
		RateWindow:  window,
		Now:         clock.Now,
	}, nil, logger.NewNop()).(*reminderWorker)

	for i := 1; i <= jobs; i++ {
		enqueueDue(t, store, clock.Now(), entity.ReminderJobID(fmt.Sprintf("bk%d", i), 1))
	}

	started := 0
	deadline := time.Now().Add(5 * time.Second)
	for started < jobs && time.Now().Before(deadline) {
		started += w.Dispatch(ctx)
	}
	w.wait()
	if started != jobs || transport.calls() != jobs {
		t.Fatalf("started=%d sends=%d want %d", started, transport.calls(), jobs)
	}

	// Starts are spaced window/limit apart; allow half a spacing of scheduling jitter.
	span := window - window/limit/2
	times := transport.times
	for i := range times {
		n := 0
		for _, ts := range times[i:] {
			if ts.Sub(times[i]) < span {
				n++
			}
		}
		if n > limit {
			t.Fatalf("%d sends within %s of send %d, limit is %d per %s", n, span, i, limit, window)
		}
	}
	if total := times[len(times)-1].Sub(times[0]); total < time.Duration(jobs-limit)*window/limit {
		t.Fatalf("%d sends took only %s", jobs, total)
	}
}

func TestDispatch_JobRemovedWhileRunning(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	transport := okTransport()
	transport.release = make(chan struct{})
	w, _ := newTestWorker(t, store, transport, clock)

	enqueueDue(t, store, clock.Now(), "bk-reminder-1")
	if n := w.Dispatch(ctx); n != 1 {
		t.Fatalf("dispatched %d want 1", n)
	}
	if removed, err := store.Remove(ctx, "bk-reminder-1"); err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	close(transport.release)
	w.wait()

	// The in-flight attempt finishes; the job stays removed.
	if transport.calls() != 1 {
		t.Fatalf("transport calls=%d want 1", transport.calls())
	}
	if _, err := store.GetState(ctx, "bk-reminder-1"); !errors.Is(err, appErrors.ErrJobNotFound) {
		t.Fatalf("err=%v want ErrJobNotFound", err)
	}
}

func TestCleanup_RespectsRetention(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	transport := &fakeTransport{script: []fakeSend{
		{result: SendResult{Success: true}},
		{result: SendResult{Success: false, Error: "down"}},
	}}
	w, _ := newTestWorker(t, store, transport, clock)

	enqueueDue(t, store, clock.Now(), "bk-reminder-1")
	if n := w.Dispatch(ctx); n != 1 {
		t.Fatalf("dispatched %d", n)
	}
	w.wait()

	failing := &entity.ReminderJob{
		ID:          "bk-reminder-2",
		BookingID:   "bk",
		Ordinal:     2,
		Payload:     entity.ReminderPayload{BookingID: "bk", AppointmentTime: clock.Now().Add(10 * time.Hour)},
		MaxAttempts: 1,
		CreatedAt:   clock.Now(),
	}
	if _, err := store.Enqueue(ctx, failing, 0); err != nil {
		t.Fatal(err)
	}
	if n := w.Dispatch(ctx); n != 1 {
		t.Fatalf("dispatched %d", n)
	}
	w.wait()
	mustJobState(t, store, "bk-reminder-1", constant.JobCompleted)
	mustJobState(t, store, "bk-reminder-2", constant.JobFailed)

	clock.Advance(25 * time.Hour)
	w.cleanup(ctx)
	if _, err := store.GetState(ctx, "bk-reminder-1"); !errors.Is(err, appErrors.ErrJobNotFound) {
		t.Fatalf("completed job past retention still present: %v", err)
	}
	mustJobState(t, store, "bk-reminder-2", constant.JobFailed)

	clock.Advance(7 * 24 * time.Hour)
	w.cleanup(ctx)
	if _, err := store.GetState(ctx, "bk-reminder-2"); !errors.Is(err, appErrors.ErrJobNotFound) {
		t.Fatalf("failed job past retention still present: %v", err)
	}
}

func TestRefreshStats_ReportsQueueDepth(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t)
	w, metrics := newTestWorker(t, store, okTransport(), clock)

	enqueueDue(t, store, clock.Now(), "bk-reminder-1")
	enqueueDue(t, store, clock.Now(), "bk-reminder-2")
	w.refreshStats(ctx)

	if metrics.depth[constant.JobWaiting] != 2 || metrics.depth[constant.JobFailed] != 0 {
		t.Fatalf("depth=%v", metrics.depth)
	}
}

func TestWorker_StartRequeuesAndDelivers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	transport := okTransport()
	w, _ := newTestWorker(t, store, transport, nil)

	enqueueDue(t, store, time.Now(), "bk-reminder-1")
	// Simulate a crash after claiming: the job is left active.
	if job, err := store.ClaimNext(ctx, time.Now()); err != nil || job == nil {
		t.Fatalf("claim: job=%v err=%v", job, err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatalf("second Start must fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for transport.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if transport.calls() != 1 {
		t.Fatalf("transport calls=%d want 1", transport.calls())
	}
	mustJobState(t, store, "bk-reminder-1", constant.JobCompleted)
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func mustJobState(t *testing.T, store repository.ReminderJobStore, id string, want constant.JobState) {
	t.Helper()
	got, err := store.GetState(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("job %s state=%s want %s", id, got, want)
	}
}
