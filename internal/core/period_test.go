package core

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodLabelRoundTrip(t *testing.T) {
	for _, year := range []int{1, 1999, 2024, 2025, 9999} {
		for month := 1; month <= 12; month++ {
			p := Period{Month: month, Year: year}
			got, err := ParsePeriod(p.Label())
			if err != nil {
				t.Fatalf("%v: parse failed: %v", p, err)
			}
			if got != p {
				t.Fatalf("round trip mismatch: %v -> %q -> %v", p, p.Label(), got)
			}
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	if l := (Period{Month: 12, Year: 2025}).Label(); l != "December 2025" {
		t.Fatalf("unexpected label %q", l)
	}
	if l := (Period{Month: 3, Year: 2025}).String(); l != "March 2025" {
		t.Fatalf("unexpected label %q", l)
	}
}

func TestParsePeriodRejectsMalformedLabels(t *testing.T) {
	bad := []string{
		"",
		"March",
		"March  2025",
		"march 2025",
		"Mar 2025",
		"March 2025 ",
		"March +2025",
		"March 02025",
		"March 0",
		"March twenty",
	}
	for _, label := range bad {
		if _, err := ParsePeriod(label); err == nil {
			t.Fatalf("%q expected error", label)
		}
	}
	_, err := ParsePeriod("Smarch 2025")
	if !errors.Is(err, ErrInvalidPeriodLabel) {
		t.Fatalf("expected ErrInvalidPeriodLabel, got %v", err)
	}
}

func TestNewPeriodValidation(t *testing.T) {
	if _, err := NewPeriod(13, 2025); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if _, err := NewPeriod(1, 0); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}

func TestAddMonthsAndBefore(t *testing.T) {
	jan := Period{Month: 1, Year: 2025}
	if got := jan.AddMonths(-1); got != (Period{Month: 12, Year: 2024}) {
		t.Fatalf("unexpected %v", got)
	}
	if got := jan.AddMonths(13); got != (Period{Month: 2, Year: 2026}) {
		t.Fatalf("unexpected %v", got)
	}
	if !jan.AddMonths(-1).Before(jan) || jan.Before(jan) {
		t.Fatal("Before ordering broken")
	}
}

func TestTrailingPeriods(t *testing.T) {
	now := time.Date(2025, 2, 17, 10, 0, 0, 0, time.UTC)
	got := TrailingPeriods(now, 12)
	if len(got) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(got))
	}
	if got[0] != (Period{Month: 2, Year: 2025}) {
		t.Fatalf("expected current month first, got %v", got[0])
	}
	if got[11] != (Period{Month: 3, Year: 2024}) {
		t.Fatalf("expected March 2024 last, got %v", got[11])
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Before(got[i-1]) {
			t.Fatalf("not most-recent-first at %d: %v", i, got)
		}
	}
}
