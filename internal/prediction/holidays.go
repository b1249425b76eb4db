package prediction

import "time"

type monthDay struct {
	month time.Month
	day   int
}

// Fixed-date public holidays, matched by month and day regardless of
// year. Movable holidays are out of scope for the heuristic.
var holidays = []monthDay{
	{time.January, 1},   // New Year's Day
	{time.January, 26},  // Republic Day
	{time.May, 1},       // Labour Day
	{time.August, 15},   // Independence Day
	{time.October, 2},   // Gandhi Jayanti
	{time.December, 25}, // Christmas
}

func IsHoliday(t time.Time) bool {
	for _, h := range holidays {
		if t.Month() == h.month && t.Day() == h.day {
			return true
		}
	}
	return false
}
