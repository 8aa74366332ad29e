package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/repository"
	"bookingreminder/internal/infrastructure/scheduler"
	appErrors "bookingreminder/internal/pkg/errors"
	"bookingreminder/internal/pkg/logger"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// WorkerConfig configures the reminder worker.
type WorkerConfig struct {
	Concurrency        int           // max jobs executing at once
	RateLimit          int           // max job starts per RateWindow
	RateWindow         time.Duration // window RateLimit applies to
	PollSpec           string        // cron spec of the dispatch loop
	CleanupSpec        string        // cron spec of the retention cleanup
	StatsSpec          string        // cron spec of the queue statistics refresh
	CompletedRetention time.Duration
	FailedRetention    time.Duration
	Now                func() time.Time
}

// DefaultWorkerConfig returns 5 parallel jobs, 10 starts per second, a 1s
// poll, and 24h/7d retention for completed/failed jobs.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:        5,
		RateLimit:          10,
		RateWindow:         time.Second,
		PollSpec:           "@every 1s",
		CleanupSpec:        "@every 1h",
		StatsSpec:          "@every 15s",
		CompletedRetention: 24 * time.Hour,
		FailedRetention:    7 * 24 * time.Hour,
		Now:                time.Now,
	}
}

type reminderWorker struct {
	store     repository.ReminderJobStore
	transport MessageTransport
	processed ProcessedSet
	cron      *scheduler.Scheduler
	cfg       WorkerConfig
	metrics   Metrics
	log       logger.Logger

	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	inflight sync.WaitGroup

	mu      sync.Mutex
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
}

// NewReminderWorker creates a new instance of ReminderWorker implementation.
func NewReminderWorker(
	store repository.ReminderJobStore,
	transport MessageTransport,
	processed ProcessedSet,
	cron *scheduler.Scheduler,
	cfg WorkerConfig,
	metrics Metrics,
	log logger.Logger,
) ReminderWorker {
	def := DefaultWorkerConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.PollSpec == "" {
		cfg.PollSpec = def.PollSpec
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = def.CleanupSpec
	}
	if cfg.StatsSpec == "" {
		cfg.StatsSpec = def.StatsSpec
	}
	if cfg.CompletedRetention <= 0 {
		cfg.CompletedRetention = def.CompletedRetention
	}
	if cfg.FailedRetention <= 0 {
		cfg.FailedRetention = def.FailedRetention
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if processed == nil {
		processed = NewMemoryProcessedSet(DefaultProcessedCapacity)
	}
	if metrics == nil {
		metrics = NopMetrics()
	}

	// Starts are spaced RateWindow/RateLimit apart with no burst, so no
	// window of RateWindow ever sees more than RateLimit starts.
	every := cfg.RateWindow / time.Duration(cfg.RateLimit)
	return &reminderWorker{
		store:     store,
		transport: transport,
		processed: processed,
		cron:      cron,
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:   rate.NewLimiter(rate.Every(every), 1),
	}
}

// Start requeues stranded jobs and registers the worker loops on the cron scheduler.
func (w *reminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("%w: reminder worker already started", appErrors.ErrInternalServer)
	}

	requeued, err := w.store.RequeueActive(ctx, w.cfg.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	if requeued > 0 {
		w.log.Warn(fmt.Sprintf("Requeued %d reminder jobs left active by a previous run", requeued))
	}

	w.runCtx, w.cancel = context.WithCancel(context.Background())
	runCtx := w.runCtx

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"dispatch", w.cfg.PollSpec, func() { w.Dispatch(runCtx) }},
		{"cleanup", w.cfg.CleanupSpec, func() { w.cleanup(runCtx) }},
		{"stats", w.cfg.StatsSpec, func() { w.refreshStats(runCtx) }},
	}
	for _, j := range jobs {
		if _, err := w.cron.AddJob(j.spec, j.fn); err != nil {
			w.cancel()
			return fmt.Errorf("%w: %s loop: %v", appErrors.ErrScheduling, j.name, err)
		}
	}
	w.cron.Start()
	w.started = true
	w.log.Info(fmt.Sprintf("Reminder worker started: concurrency=%d rate=%d/%s poll=%s",
		w.cfg.Concurrency, w.cfg.RateLimit, w.cfg.RateWindow, w.cfg.PollSpec))
	return nil
}

// Close stops dispatching and waits for in-flight deliveries to finish.
func (w *reminderWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return nil
	}

	w.cron.Stop()
	w.inflight.Wait()
	w.cancel()
	w.started = false
	w.log.Info("Reminder worker stopped.")
	return nil
}

// Dispatch claims due jobs while a slot is free and runs each in its own goroutine.
func (w *reminderWorker) Dispatch(ctx context.Context) int {
	started := 0
	for ctx.Err() == nil {
		if !w.sem.TryAcquire(1) {
			break
		}

		job, err := w.store.ClaimNext(ctx, w.cfg.Now())
		if err != nil {
			w.sem.Release(1)
			w.log.Error("Failed to claim due reminder job", err)
			break
		}
		if job == nil {
			w.sem.Release(1)
			break
		}

		if err := w.limiter.Wait(ctx); err != nil {
			// The job stays active; RequeueActive returns it on the next start.
			w.sem.Release(1)
			w.log.Warn(fmt.Sprintf("Dispatch interrupted before starting job %s: %v", job.ID, err))
			break
		}

		w.inflight.Add(1)
		started++
		go w.run(ctx, job)
	}
	if started > 0 {
		w.log.Debug(fmt.Sprintf("Dispatched %d reminder jobs", started))
	}
	return started
}

// run executes one claimed job and reports the outcome to the job store.
func (w *reminderWorker) run(ctx context.Context, job *entity.ReminderJob) {
	defer w.inflight.Done()
	defer w.sem.Release(1)

	err := w.ProcessReminderJob(ctx, job)
	now := w.cfg.Now()
	if err == nil {
		if cerr := w.store.Complete(ctx, job.ID, now); cerr != nil {
			if errors.Is(cerr, appErrors.ErrJobNotFound) {
				w.log.Warn(fmt.Sprintf("Reminder job %s was removed while it was running", job.ID))
				return
			}
			w.log.Error(fmt.Sprintf("Failed to mark reminder job %s completed", job.ID), cerr)
		}
		return
	}

	state, ferr := w.store.Fail(ctx, job.ID, err, now)
	switch {
	case errors.Is(ferr, appErrors.ErrJobNotFound):
		w.log.Warn(fmt.Sprintf("Reminder job %s was removed while it was running", job.ID))
	case ferr != nil:
		w.log.Error(fmt.Sprintf("Failed to record failed attempt %d of reminder job %s", job.Attempts, job.ID), ferr)
	case state == constant.JobFailed:
		w.log.Error(fmt.Sprintf("Reminder job %s failed permanently after %d attempts", job.ID, job.Attempts), err)
	default:
		w.log.Warn(fmt.Sprintf("Reminder job %s attempt %d failed, retry scheduled: %v", job.ID, job.Attempts, err))
	}
}

// ProcessReminderJob applies the duplicate and staleness checks and sends the reminder.
func (w *reminderWorker) ProcessReminderJob(ctx context.Context, job *entity.ReminderJob) error {
	key := job.DeliveryKey()

	seen, err := w.processed.Seen(ctx, key)
	if err != nil {
		w.log.Warn(fmt.Sprintf("Processed set unavailable for job %s, delivering anyway: %v", job.ID, err))
	} else if seen {
		w.log.Info(fmt.Sprintf("Reminder job %s already delivered (idempotent skip)", job.ID))
		w.metrics.DeliveryOutcome(OutcomeDuplicate)
		return nil
	}

	if !job.Payload.AppointmentTime.After(w.cfg.Now()) {
		w.log.Info(fmt.Sprintf("Appointment of booking %s has passed, skipping reminder %s", job.Payload.BookingID, job.ID))
		w.metrics.DeliveryOutcome(OutcomeStale)
		return nil
	}

	result, err := w.transport.Send(ctx, FormatReminderMessage(job.Payload))
	if err != nil {
		w.metrics.DeliveryOutcome(OutcomeFailed)
		return fmt.Errorf("%w: %v", appErrors.ErrTransport, err)
	}
	if !result.Success {
		w.metrics.DeliveryOutcome(OutcomeFailed)
		return fmt.Errorf("%w: %s", appErrors.ErrTransport, result.Error)
	}

	if err := w.processed.Mark(ctx, key); err != nil {
		w.log.Warn(fmt.Sprintf("Failed to mark reminder job %s as delivered: %v", job.ID, err))
	}
	w.metrics.DeliveryOutcome(OutcomeSent)
	w.log.Info(fmt.Sprintf("Delivered reminder %s for booking %s (message %s)", job.ID, job.Payload.BookingID, result.MessageID))
	return nil
}

// cleanup deletes finished jobs whose retention has passed.
func (w *reminderWorker) cleanup(ctx context.Context) {
	now := w.cfg.Now()
	retention := map[constant.JobState]time.Duration{
		constant.JobCompleted: w.cfg.CompletedRetention,
		constant.JobFailed:    w.cfg.FailedRetention,
	}
	for state, keep := range retention {
		n, err := w.store.DeleteFinishedBefore(ctx, state, now.Add(-keep))
		if err != nil {
			w.log.Error(fmt.Sprintf("Failed to clean up %s reminder jobs", state), err)
			continue
		}
		if n > 0 {
			w.log.Info(fmt.Sprintf("Cleaned up %d %s reminder jobs older than %s", n, state, keep))
		}
	}
}

func (w *reminderWorker) refreshStats(ctx context.Context) {
	counts, err := w.store.Counts(ctx, constant.AllJobStates...)
	if err != nil {
		w.log.Error("Failed to refresh reminder queue statistics", err)
		return
	}
	w.metrics.QueueDepth(counts)
}
