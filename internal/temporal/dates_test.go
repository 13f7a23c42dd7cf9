package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDateFR(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{date: time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), want: "15 décembre 2025"},
		{date: time.Date(2026, time.February, 3, 10, 30, 0, 0, time.UTC), want: "03 février 2026"},
		{date: time.Date(2024, time.August, 31, 0, 0, 0, 0, time.UTC), want: "31 août 2024"},
		{date: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), want: "01 janvier 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDateFR(tt.date))
		})
	}
}

func TestMonthNameFR(t *testing.T) {
	assert.Equal(t, "janvier", MonthNameFR(time.January))
	assert.Equal(t, "décembre", MonthNameFR(time.December))
	assert.Equal(t, "", MonthNameFR(time.Month(13)))
}
