package main

import (
	"testing"
	"time"
)

func TestParseWeek(t *testing.T) {
	week, err := parseWeek("08:30-16:00")
	if err != nil {
		t.Fatalf("parseWeek: %v", err)
	}
	if len(week) != 7 || week[time.Sunday].IsWorkingDay || !week[time.Monday].IsWorkingDay {
		t.Fatalf("unexpected week %+v", week)
	}
	if week[time.Friday].Start.String() != "08:30" || week[time.Friday].End.String() != "16:00" {
		t.Fatalf("unexpected friday %+v", week[time.Friday])
	}
	for _, bad := range []string{"0900-1700", "17:00-09:00", "9-17"} {
		if _, err := parseWeek(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if week, err := parseWeek(""); err != nil || week != nil {
		t.Fatalf("empty hours should be skipped")
	}
}
