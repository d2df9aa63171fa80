package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mohammad-safakhou/jobagent/internal/jobs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobagent.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLookupAttempt(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	posting := jobs.Posting{
		Title:    "Backend Engineer",
		Company:  "Acme",
		Location: "Remote",
		URL:      "https://board.example/jobs/123",
	}

	seen, err := s.WasAttempted(ctx, posting.URL)
	if err != nil {
		t.Fatalf("WasAttempted: %v", err)
	}
	if seen {
		t.Fatal("expected fresh url to be unattempted")
	}

	if err := s.RecordAttempt(ctx, posting, jobs.OutcomeApplied, ""); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	seen, err = s.WasAttempted(ctx, posting.URL)
	if err != nil {
		t.Fatalf("WasAttempted: %v", err)
	}
	if !seen {
		t.Fatal("expected recorded url to be attempted")
	}

	got, err := s.GetAttempt(ctx, posting.URL)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if got.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %q, want %q", got.Outcome, jobs.OutcomeApplied)
	}
	if got.Company != "Acme" {
		t.Fatalf("company = %q, want Acme", got.Company)
	}
}

func TestRepeatAttemptUpdatesOutcome(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	posting := jobs.Posting{Title: "SRE", Company: "Acme", URL: "https://board.example/jobs/9"}
	if err := s.RecordAttempt(ctx, posting, jobs.OutcomeFailed, "no progress"); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := s.RecordAttempt(ctx, posting, jobs.OutcomeApplied, ""); err != nil {
		t.Fatalf("RecordAttempt (repeat): %v", err)
	}

	got, err := s.GetAttempt(ctx, posting.URL)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if got.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %q, want latest %q", got.Outcome, jobs.OutcomeApplied)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[string(jobs.OutcomeApplied)] != 1 || counts[string(jobs.OutcomeFailed)] != 0 {
		t.Fatalf("counts = %v, want single applied row", counts)
	}
}

func TestRejections(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	url := "https://board.example/jobs/77"
	if err := s.RecordRejection(ctx, url, "role mismatch"); err != nil {
		t.Fatalf("RecordRejection: %v", err)
	}
	rejected, err := s.WasRejected(ctx, url)
	if err != nil {
		t.Fatalf("WasRejected: %v", err)
	}
	if !rejected {
		t.Fatal("expected url to be rejected")
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["rejected"] != 1 {
		t.Fatalf("rejected count = %d, want 1", counts["rejected"])
	}
}

func TestEmptyURLRejected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordAttempt(ctx, jobs.Posting{Title: "x"}, jobs.OutcomeSkipped, ""); err == nil {
		t.Fatal("expected error for empty url")
	}
	if err := s.RecordRejection(ctx, "", "r"); err == nil {
		t.Fatal("expected error for empty url")
	}
}
