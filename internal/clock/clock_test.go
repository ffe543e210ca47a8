package clock

import (
	"testing"
	"time"
)

func TestFixedClock(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	c := Fixed(at)
	if !c.Now().Equal(at) {
		t.Fatalf("expected %s, got %s", at, c.Now())
	}
}

func TestOrFallsBackToSystem(t *testing.T) {
	if _, ok := Or(nil).(System); !ok {
		t.Fatal("expected system clock fallback")
	}
	fixed := Fixed(time.Unix(0, 0))
	if Or(fixed) != Clock(fixed) {
		t.Fatal("expected provided clock to be kept")
	}
}

func TestTodayUsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:00 UTC on March 3 is still March 2 in New York.
	c := Fixed(time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC))
	today := Today(c, ny)
	if today.Day() != 2 || today.Hour() != 0 || today.Location() != ny {
		t.Fatalf("unexpected today: %s", today)
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := time.Date(2026, 3, 7, 9, 0, 0, 0, ny)
	b := time.Date(2026, 3, 9, 8, 0, 0, 0, ny)
	if got := DaysBetween(a, b, ny); got != 2 {
		t.Fatalf("expected 2 days, got %d", got)
	}
	if got := DaysBetween(b, a, ny); got != -2 {
		t.Fatalf("expected -2 days, got %d", got)
	}
}
