package timecode

import (
	"testing"
	"time"
)

func TestParseAndFormat(t *testing.T) {
	cases := []struct {
		name  string
		stamp string
		want  time.Duration
	}{
		{"zero", "00:00:00", 0},
		{"minutes", "00:05:20", 5*time.Minute + 20*time.Second},
		{"hours", "01:30:00", 90 * time.Minute},
		{"long", "27:00:01", 27*time.Hour + time.Second},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Parse(c.stamp)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", c.stamp, err)
			}
			if got != c.want {
				t.Fatalf("Parse(%q) = %v; want %v", c.stamp, got, c.want)
			}
			if back := Format(got); back != c.stamp {
				t.Fatalf("Format(%v) = %q; want %q", got, back, c.stamp)
			}
		})
	}
}

func TestParseLenientForms(t *testing.T) {
	cases := []struct {
		stamp string
		want  string
	}{
		{"05:45", "00:05:45"},
		{"75:30", "01:15:30"},
		{"00:05:30.5", "00:05:30"},
		{"1:02:03", "01:02:03"},
		{"00:61:00", "01:01:00"},
		{" 12:00.999 ", "00:12:00"},
	}
	for _, c := range cases {
		t.Run(c.stamp, func(t *testing.T) {
			d, err := Parse(c.stamp)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", c.stamp, err)
			}
			if got := Format(d); got != c.want {
				t.Fatalf("Format(Parse(%q)) = %q; want %q", c.stamp, got, c.want)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "10", "aa:bb:cc", "00:00:-1", "-1:00", "1:2:3:4", "00:1e2", "00:NaN", "00:10.5:00", "00:"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) expected error", s)
		}
	}
}

func TestShift(t *testing.T) {
	got, err := Shift("00:10:00", 30*time.Minute)
	if err != nil {
		t.Fatalf("Shift error: %v", err)
	}
	if got != "00:40:00" {
		t.Fatalf("Shift = %q; want 00:40:00", got)
	}

	if got, err := Shift("05:30.5", 30*time.Minute); err != nil || got != "00:35:30" {
		t.Fatalf("Shift(05:30.5) = %q, %v; want 00:35:30", got, err)
	}

	if got, err := Shift("garbage", time.Hour); err == nil || got != "garbage" {
		t.Fatalf("Shift(garbage) = %q, %v; want unchanged stamp and error", got, err)
	}
}

func TestFromSeconds(t *testing.T) {
	if got := FromSeconds(25.9); got != 25*time.Second {
		t.Fatalf("FromSeconds(25.9) = %v", got)
	}
	if got := FromSeconds(-3); got != 0 {
		t.Fatalf("FromSeconds(-3) = %v", got)
	}
}
