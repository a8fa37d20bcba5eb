package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlapsHalfOpenInterval(t *testing.T) {
	cases := []struct {
		name                   string
		aStart, aEnd, bStart, bEnd string
		want                   bool
	}{
		{"identical", "2026-09-10", "2026-09-12", "2026-09-10", "2026-09-12", true},
		{"contained", "2026-09-10", "2026-09-20", "2026-09-12", "2026-09-14", true},
		{"partial front", "2026-09-10", "2026-09-12", "2026-09-11", "2026-09-14", true},
		{"checkout equals checkin", "2026-09-10", "2026-09-12", "2026-09-12", "2026-09-14", false},
		{"checkin equals checkout", "2026-09-12", "2026-09-14", "2026-09-10", "2026-09-12", false},
		{"disjoint", "2026-09-10", "2026-09-12", "2026-09-20", "2026-09-22", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(d(tc.aStart), d(tc.aEnd), d(tc.bStart), d(tc.bEnd))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusBooked:     false,
		StatusPaid:       true,
		StatusCancelled:  true,
		StatusFailed:     true,
	} {
		b := Booking{Status: status}
		assert.Equal(t, want, b.Terminal(), status)
	}
}
