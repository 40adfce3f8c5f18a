package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := map[string]Clock{
		"00:00":    0,
		"09:30":    570,
		"17:00:00": 1020,
		"24:00":    MinutesPerDay,
	}
	for raw, want := range cases {
		got, err := ParseClock(raw)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
	for _, raw := range []string{"9:30", "25:00", "24:01", "12:60", "12:00:30", "noon", "", "+9:00", "-1:30", "09:+5", " 9:00x"} {
		if _, err := ParseClock(raw); err == nil {
			t.Fatalf("ParseClock(%q) should fail", raw)
		}
	}
}

func TestClockJSON(t *testing.T) {
	var v struct {
		At Clock `json:"at"`
	}
	if err := json.Unmarshal([]byte(`{"at":"08:15"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.At != 495 {
		t.Fatalf("expected 495, got %d", v.At)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"at":"08:15"}` {
		t.Fatalf("unexpected json %s", out)
	}
	if err := json.Unmarshal([]byte(`{"at":815}`), &v); err == nil {
		t.Fatal("numeric time should be rejected")
	}
}

func TestParseStatusNormalizesNoShow(t *testing.T) {
	for _, raw := range []string{"no-show", "no_show", "NO-SHOW"} {
		s, err := ParseStatus(raw)
		if err != nil || s != StatusNoShow {
			t.Fatalf("ParseStatus(%q) = %q, %v", raw, s, err)
		}
	}
	if _, err := ParseStatus("booked"); err == nil {
		t.Fatal("unknown status should fail")
	}
	if StatusCancelled.Occupies() || !StatusPending.Occupies() {
		t.Fatal("only cancelled appointments release their slot")
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	s := DefaultSettings()
	s.AppointmentDuration = 0
	s.MaxAdvanceBookingDays = 0
	if err := s.Validate(); err == nil {
		t.Fatal("expected range errors")
	}
}

func TestDateHelpers(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 23:30 UTC on Jan 1 is already Jan 2 in Berlin.
	instant := time.Date(2030, 1, 1, 23, 30, 0, 0, time.UTC)
	if got := FormatDate(DateOf(instant, berlin)); got != "2030-01-02" {
		t.Fatalf("DateOf = %s", got)
	}
	d, _ := ParseDate("2030-01-02")
	at := At(d, 570, berlin)
	if at.Hour() != 9 || at.Minute() != 30 || at.Location() != berlin {
		t.Fatalf("At = %v", at)
	}
	if (Customer{Timezone: "Nowhere/City"}).Location() != time.UTC {
		t.Fatal("unknown zone should fall back to UTC")
	}
}
