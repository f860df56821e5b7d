package app

import (
	"sync"
	"testing"
)

func TestLockReleasesEntries(t *testing.T) {
	s := NewAttemptService(nil, nil, nil)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.lock("sub-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if len(s.locks) != 0 {
		t.Fatalf("expected no lock entries left, got %d", len(s.locks))
	}
}
