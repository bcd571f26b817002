package matchclock

import (
	"strings"
	"testing"
)

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"pitch-1", true},
		{"Field_A", true},
		{"", false},
		{"-lead", false},
		{"a.b", false},
		{"a*", false},
		{"with space", false},
		{strings.Repeat("x", 64), true},
		{strings.Repeat("x", 65), false},
	}
	for _, tc := range tests {
		if got := ValidSessionID(tc.id); got != tc.want {
			t.Fatalf("ValidSessionID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
