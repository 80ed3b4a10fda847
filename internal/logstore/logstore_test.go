package logstore

import "testing"

func TestConsumeDeliversOnce(t *testing.T) {
	s := New()
	s.Addf("first %d", 1)
	s.Addf("second")

	got := s.Consume()
	if len(got) != 2 || got[0].Message != "first 1" || got[1].Message != "second" {
		t.Fatalf("Consume = %+v", got)
	}

	if again := s.Consume(); len(again) != 0 {
		t.Errorf("second Consume returned %d entries, want 0", len(again))
	}

	s.Addf("third")
	got = s.Consume()
	if len(got) != 1 || got[0].Message != "third" {
		t.Errorf("Consume after new entry = %+v", got)
	}
}

func TestSnapshotKeepsDisplayedFlag(t *testing.T) {
	s := New()
	s.Addf("one")

	if snap := s.Snapshot(); len(snap) != 1 || snap[0].Displayed {
		t.Fatalf("Snapshot = %+v", snap)
	}
	if snap := s.Snapshot(); len(snap) != 1 || snap[0].Displayed {
		t.Error("Snapshot flipped the displayed flag")
	}

	s.Consume()
	if snap := s.Snapshot(); !snap[0].Displayed {
		t.Error("Consume did not mark the entry displayed")
	}
}
