package model

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ParseDate parses a calendar day ("2006-01-02") to UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// ParseMinute parses a wall-clock time ("15:04") to minutes since midnight.
func ParseMinute(raw string) (int, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
