package services

import "testing"

func TestFormatOrderNumber(t *testing.T) {
	cases := []struct {
		year, seq int
		want      string
	}{
		{2024, 1, "CMD-2024-001"},
		{2024, 7, "CMD-2024-007"},
		{2025, 42, "CMD-2025-042"},
		{2025, 999, "CMD-2025-999"},
		{2025, 1000, "CMD-2025-1000"}, // padding widens, never truncates
	}
	for _, c := range cases {
		if got := FormatOrderNumber(c.year, c.seq); got != c.want {
			t.Errorf("FormatOrderNumber(%d, %d) = %s, want %s", c.year, c.seq, got, c.want)
		}
	}
}
