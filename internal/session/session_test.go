package session

import (
	"testing"
	"time"
)

func TestOpenInMemoryCreatesSchema(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	defer s.Close()

	if s.RunID == "" {
		t.Fatalf("expected a non-empty RunID")
	}
}

func TestRecordAndRecent(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	defer s.Close()

	if err := s.Record(`print 1;`, "OK", 2*time.Millisecond); err != nil {
		t.Fatalf("unexpected error recording run: %v", err)
	}
	if err := s.Record(`print nope;`, "RUNTIME_ERROR", time.Millisecond); err != nil {
		t.Fatalf("unexpected error recording run: %v", err)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("unexpected error fetching recent runs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// newest first
	if entries[0].Source != `print nope;` || entries[0].Result != "RUNTIME_ERROR" {
		t.Fatalf("unexpected newest entry: %+v", entries[0])
	}
	if entries[1].Source != `print 1;` || entries[1].Result != "OK" {
		t.Fatalf("unexpected oldest entry: %+v", entries[1])
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		if err := s.Record("print 1;", "OK", time.Millisecond); err != nil {
			t.Fatalf("unexpected error recording run: %v", err)
		}
	}

	entries, err := s.Recent(2)
	if err != nil {
		t.Fatalf("unexpected error fetching recent runs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(entries))
	}
}
