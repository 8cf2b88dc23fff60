package game

import (
	"testing"
	"time"
)

func TestAlarmDataSetReplacesByIdentity(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := &AlarmData{}

	a.Set(Deadline{Kind: AlarmTurnTimeout, Deadline: now.Add(time.Minute), TurnKey: 1})
	a.Set(Deadline{Kind: AlarmTurnTimeout, Deadline: now.Add(2 * time.Minute), TurnKey: 2})
	if len(a.Deadlines) != 1 {
		t.Fatalf("expected replacement, got %d deadlines", len(a.Deadlines))
	}
	if a.Deadlines[0].TurnKey != 2 {
		t.Error("newer deadline should win")
	}

	// Seat expiries are scoped per user and coexist.
	a.Set(Deadline{Kind: AlarmSeatExpiry, UserID: "alice", Deadline: now.Add(time.Minute)})
	a.Set(Deadline{Kind: AlarmSeatExpiry, UserID: "bob", Deadline: now.Add(time.Minute)})
	if len(a.Deadlines) != 3 {
		t.Fatalf("expected 3 deadlines, got %d", len(a.Deadlines))
	}
}

func TestAlarmDataNext(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := &AlarmData{}

	if _, ok := a.Next(); ok {
		t.Fatal("empty data should have no next deadline")
	}

	a.Set(Deadline{Kind: AlarmPauseTimeout, Deadline: now.Add(30 * time.Minute)})
	a.Set(Deadline{Kind: AlarmSeatExpiry, UserID: "alice", Deadline: now.Add(time.Minute)})
	a.Set(Deadline{Kind: AlarmTurnTimeout, Deadline: now.Add(10 * time.Second), TurnKey: 4})

	next, ok := a.Next()
	if !ok || next.Kind != AlarmTurnTimeout {
		t.Fatalf("nearest deadline should be the turn timeout, got %+v", next)
	}
}

func TestAlarmDataDueIsIdempotent(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := &AlarmData{}
	a.Set(Deadline{Kind: AlarmSeatExpiry, UserID: "alice", Deadline: now.Add(-time.Second)})
	a.Set(Deadline{Kind: AlarmSeatExpiry, UserID: "bob", Deadline: now.Add(-2 * time.Second)})
	a.Set(Deadline{Kind: AlarmPauseTimeout, Deadline: now.Add(time.Hour)})

	due := a.Due(now)
	if len(due) != 2 {
		t.Fatalf("expected 2 due deadlines, got %d", len(due))
	}
	// Oldest first.
	if due[0].UserID != "bob" || due[1].UserID != "alice" {
		t.Errorf("due deadlines out of order: %+v", due)
	}

	// A second firing for the same instant is a no-op.
	if again := a.Due(now); len(again) != 0 {
		t.Errorf("second Due call should be empty, got %d", len(again))
	}
	if len(a.Deadlines) != 1 {
		t.Errorf("future deadline should remain, have %d", len(a.Deadlines))
	}
}

func TestAlarmDataClear(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := &AlarmData{}
	a.Set(Deadline{Kind: AlarmSeatExpiry, UserID: "alice", Deadline: now})
	a.Set(Deadline{Kind: AlarmTurnTimeout, Deadline: now, TurnKey: 1})
	a.Set(Deadline{Kind: AlarmAFKWarning, Deadline: now, TurnKey: 1})

	a.Clear(AlarmSeatExpiry, "alice")
	a.ClearKind(AlarmTurnTimeout)
	a.ClearKind(AlarmAFKWarning)
	if len(a.Deadlines) != 0 {
		t.Errorf("expected empty deadlines, got %+v", a.Deadlines)
	}
}
