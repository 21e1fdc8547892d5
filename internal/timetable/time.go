package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtendedDayCutoffSec is the boundary below which a standard time-of-day is
// treated as belonging to the previous service day. Services that run past
// midnight are compared on a single 06:00 -> ~30:00 timeline instead of
// wrapping through zero.
const ExtendedDayCutoffSec = 6 * 3600

const daySeconds = 86400

// ParseDaySeconds parses "HH:MM:SS" (or "HH:MM") into seconds since
// midnight. Hours may exceed 24 for overnight schedules. Malformed input
// yields 0.
func ParseDaySeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	sec := 0
	if len(parts) > 2 {
		sec, _ = strconv.Atoi(parts[2])
	}
	total := h*3600 + m*60 + sec
	if total < 0 {
		total = 0
	}
	return total
}

// FormatDaySeconds renders seconds since midnight as "HH:MM:SS",
// wrapping values of 24h and above back into a standard clock reading.
func FormatDaySeconds(sec int) string {
	sec = ((sec % daySeconds) + daySeconds) % daySeconds
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

// ToExtendedDay remaps a standard time-of-day (0..86399) onto the extended
// service-day timeline: anything before the cutoff counts as a continuation
// of the previous day and gains 24h.
func ToExtendedDay(sec int) int {
	if sec < ExtendedDayCutoffSec {
		return sec + daySeconds
	}
	return sec
}

// FromExtendedDay is the inverse of ToExtendedDay, mapping an extended
// timeline value back to a standard time-of-day for display.
func FromExtendedDay(sec int) int {
	if sec >= daySeconds {
		return sec - daySeconds
	}
	return sec
}
