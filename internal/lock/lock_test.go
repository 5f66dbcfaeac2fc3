package lock

import (
	"errors"
	"log/slog"
	"testing"
)

type fakeGuardWriter struct {
	claimResult    bool
	claimErr       error
	releaseErr     error
	claimCalls     int
	releaseCalls   int
}

func (f *fakeGuardWriter) ClaimHubProcessingLock(int) (bool, error) {
	f.claimCalls++
	return f.claimResult, f.claimErr
}

func (f *fakeGuardWriter) ReleaseHubProcessingLock(int) error {
	f.releaseCalls++
	return f.releaseErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(discardWriter), nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestGuardRunSkipsWhenClaimFails(t *testing.T) {
	w := &fakeGuardWriter{claimResult: false}
	g := New(w, discardLogger())

	called := false
	err := g.Run(7, func() error { called = true; return nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Error("job should not run when the claim fails")
	}
	if w.releaseCalls != 0 {
		t.Errorf("release should not be called after a failed claim, got %d calls", w.releaseCalls)
	}
}

func TestGuardRunReleasesAfterSuccessAndFailure(t *testing.T) {
	w := &fakeGuardWriter{claimResult: true}
	g := New(w, discardLogger())

	if err := g.Run(7, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w.releaseCalls != 1 {
		t.Errorf("release calls = %d, want 1", w.releaseCalls)
	}

	jobErr := errors.New("job failed")
	if err := g.Run(7, func() error { return jobErr }); err != jobErr {
		t.Errorf("Run should surface the job error, got %v", err)
	}
	if w.releaseCalls != 2 {
		t.Errorf("release calls = %d, want 2 (release must happen even on failure)", w.releaseCalls)
	}
}
