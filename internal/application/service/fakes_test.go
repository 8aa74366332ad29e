package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/policy"
	"bookingreminder/internal/domain/repository"
	"bookingreminder/internal/infrastructure/database/sqlite"

	"gorm.io/gorm"
)

var errStoreDown = errors.New("store unavailable")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlite.Open(sqlite.Options{DSN: fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sqlite.Close(db) })
	return db
}

func newTestStore(t *testing.T) repository.ReminderJobStore {
	t.Helper()
	return sqlite.NewReminderJobStore(newTestDB(t), policy.DefaultRetry())
}

// fakeClock is a settable time source shared by scheduler, worker and store calls.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// faultyStore wraps a real store and injects errors.
type faultyStore struct {
	repository.ReminderJobStore

	mu         sync.Mutex
	enqueueErr map[string]error // by job id
	listErr    error
	removeErr  error
	enqueued   []string // every id Enqueue was called with
}

func (s *faultyStore) Enqueue(ctx context.Context, job *entity.ReminderJob, delay time.Duration) (bool, error) {
	s.mu.Lock()
	s.enqueued = append(s.enqueued, job.ID)
	err := s.enqueueErr[job.ID]
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return s.ReminderJobStore.Enqueue(ctx, job, delay)
}

func (s *faultyStore) ListByStates(ctx context.Context, states ...constant.JobState) ([]*entity.ReminderJob, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ReminderJobStore.ListByStates(ctx, states...)
}

func (s *faultyStore) ListByBooking(ctx context.Context, bookingID string, states ...constant.JobState) ([]*entity.ReminderJob, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ReminderJobStore.ListByBooking(ctx, bookingID, states...)
}

func (s *faultyStore) Remove(ctx context.Context, id string) (bool, error) {
	if s.removeErr != nil {
		return false, s.removeErr
	}
	return s.ReminderJobStore.Remove(ctx, id)
}

// fakeTransport replays scripted results and records every message.
type fakeTransport struct {
	mu      sync.Mutex
	script  []fakeSend // consumed in order; the last entry repeats
	sent    []Message
	times   []time.Time   // wall clock of every Send
	release chan struct{} // when set, Send blocks until it is closed
}

type fakeSend struct {
	result SendResult
	err    error
}

func okTransport() *fakeTransport {
	return &fakeTransport{script: []fakeSend{{result: SendResult{Success: true, MessageID: "msg-1"}}}}
}

func (f *fakeTransport) Send(ctx context.Context, msg Message) (SendResult, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return SendResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	f.times = append(f.times, time.Now())
	if len(f.script) == 0 {
		return SendResult{Success: true}, nil
	}
	next := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return next.result, next.err
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// recordingMetrics counts what the services report.
type recordingMetrics struct {
	mu        sync.Mutex
	scheduled int
	cancelled int
	outcomes  map[string]int
	depth     map[constant.JobState]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: map[string]int{}}
}

func (m *recordingMetrics) RemindersScheduled(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled += n
}

func (m *recordingMetrics) RemindersCancelled(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled += n
}

func (m *recordingMetrics) DeliveryOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *recordingMetrics) QueueDepth(counts map[constant.JobState]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth = counts
}

func (m *recordingMetrics) outcome(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[name]
}

func confirmedBooking(id string, at time.Time) *entity.Booking {
	return &entity.Booking{
		ID:            id,
		CustomerID:    "cust-1",
		CustomerName:  "Aiko",
		CustomerPhone: "+81-90-0000-0000",
		ServiceID:     "svc-cut",
		ResourceID:    "chair-2",
		ScheduledTime: at,
		Status:        constant.BookingConfirmed,
	}
}
