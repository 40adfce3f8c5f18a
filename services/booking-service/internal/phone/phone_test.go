package phone

import "testing"

func TestNormalizeMobile(t *testing.T) {
	got, err := NormalizeMobile("0151 23456789", "DE")
	if err != nil {
		t.Fatalf("NormalizeMobile: %v", err)
	}
	if got != "+4915123456789" {
		t.Fatalf("expected E.164, got %q", got)
	}
	if _, err := NormalizeMobile("+49 151 23456789", "US"); err != nil {
		t.Fatalf("international form should parse regardless of region: %v", err)
	}
}

func TestNormalizeMobileRejects(t *testing.T) {
	for _, raw := range []string{"", "abc", "12", "030 1234567"} {
		if _, err := NormalizeMobile(raw, "DE"); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
