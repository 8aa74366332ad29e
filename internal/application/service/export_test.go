package service

// wait blocks until every dispatched job has reported its outcome.
func (w *reminderWorker) wait() {
	w.inflight.Wait()
}

func (s *memoryProcessedSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
