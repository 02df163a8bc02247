package admin

import (
	"testing"
	"time"
)

func TestParseSummaryDate(t *testing.T) {
	got, err := parseSummaryDate(" 2026-08-01 ")
	if err != nil {
		t.Fatalf("parse valid date failed: %v", err)
	}
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("date want %s got %v", want, got)
	}

	got, err = parseSummaryDate("")
	if err != nil || got != nil {
		t.Fatalf("empty value must yield nil date, got %v err %v", got, err)
	}

	if _, err := parseSummaryDate("08/01/2026"); err == nil {
		t.Fatal("unsupported format must be rejected")
	}
}
