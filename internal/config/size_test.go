package config

import "testing"

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"":        0,
		"100":     100,
		"10MB":    10 * 1024 * 1024,
		"1.5kb":   1536,
		"2GB":     2 * 1024 * 1024 * 1024,
		" 7B ":    7,
		"512k":    512 * 1024,
		"3 MiB":   3 * 1024 * 1024,
		"0":       0,
		"64b":     64,
		"1.25Gib": 1342177280,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: want %d, got %d", in, want, got)
		}
	}
	for _, bad := range []string{"abc", "-1", "MB", "-2KB", "10TB", "1.MB"} {
		if _, err := ParseSize(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatSizeRoundTrips(t *testing.T) {
	cases := map[int64]string{
		0:                      "unlimited",
		7:                      "7B",
		1536:                   "1536B",
		512 * 1024:             "512KB",
		10 * 1024 * 1024:       "10MB",
		2 * 1024 * 1024 * 1024: "2GB",
	}
	for n, want := range cases {
		got := FormatSize(n)
		if got != want {
			t.Fatalf("format %d: want %q, got %q", n, want, got)
		}
		if n == 0 {
			continue
		}
		back, err := ParseSize(got)
		if err != nil || back != n {
			t.Fatalf("round trip %d: got %d, %v", n, back, err)
		}
	}
}
