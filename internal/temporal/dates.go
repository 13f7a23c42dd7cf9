package temporal

import (
	"fmt"
	"time"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// MonthNameFR returns the French name of m.
func MonthNameFR(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return frenchMonths[m-1]
}

// FormatDateFR renders t as "DD month YYYY" with the month spelled out in French,
// e.g. "15 décembre 2025".
func FormatDateFR(t time.Time) string {
	return fmt.Sprintf("%02d %s %d", t.Day(), MonthNameFR(t.Month()), t.Year())
}
