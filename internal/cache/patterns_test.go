package cache

import (
	"testing"
	"time"
)

func TestPatternTracker_CountsAndCommon(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	tr, err := NewPatternTracker(10, time.Hour, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewPatternTracker: %v", err)
	}

	tr.Add("teh", "the")
	tr.Add("teh", "the")
	tr.Add("teh", "tech")
	tr.Add("adn", "and")
	tr.Add("same", "same") // no-op

	stats := tr.Stats("teh")
	if stats["the"] != 2 || stats["tech"] != 1 {
		t.Errorf("Stats(teh) = %v", stats)
	}
	if got := tr.Stats("same"); len(got) != 0 {
		t.Errorf("identity substitution recorded: %v", got)
	}

	common := tr.Common(2)
	if len(common) != 2 {
		t.Fatalf("Common(2) returned %d entries", len(common))
	}
	if common[0] != (PatternCount{Pattern: "teh", Correction: "the", Count: 2}) {
		t.Errorf("Common[0] = %+v", common[0])
	}
	if common[1] != (PatternCount{Pattern: "adn", Correction: "and", Count: 1}) {
		t.Errorf("Common[1] = %+v, want adn→and (ties ordered by pattern)", common[1])
	}
}

func TestPatternTracker_Expires(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	tr, err := NewPatternTracker(10, time.Minute, WithClock(clk.Now))
	if err != nil {
		t.Fatal(err)
	}

	tr.Add("recieve", "receive")
	clk.Advance(time.Minute)

	if got := tr.Common(0); len(got) != 0 {
		t.Errorf("expired pattern still reported: %v", got)
	}
}
