package utils

import (
	"testing"
	"time"
)

func TestTimeToMs(t *testing.T) {
	if got := TimeToMs(1500 * time.Microsecond); got != 1.5 {
		t.Errorf("Expected 1.5, got %f", got)
	}
	if got := TimeToMs(0); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1234 * time.Nanosecond, "1µs"},
		{1234567 * time.Nanosecond, "1ms"},
		{1234 * time.Millisecond, "1.23s"},
		{125 * time.Second, "2m5s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.duration); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
		}
	}
}
