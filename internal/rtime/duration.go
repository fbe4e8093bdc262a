package rtime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"rove/internal/apperror"
)

// RelativeDuration is a calendar-aware duration. Month-granular
// components (years, months) are added via calendar arithmetic so that
// "P1M" from Jan 31 lands on Feb 28/29, not 30 days later; second-
// granular components (days, hours, minutes, seconds) are added as a
// fixed offset.
type RelativeDuration struct {
	Months  int64
	Seconds int64
}

// AddTo returns ts shifted by d: calendar months first, then the fixed
// second offset.
func (d RelativeDuration) AddTo(ts Timestamp) Timestamp {
	if d.Months == 0 {
		return ts + Timestamp(d.Seconds)
	}
	t := time.Unix(int64(ts), 0).UTC()
	y, mo, day := t.Date()
	first := time.Date(y, mo+time.Month(d.Months), 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	if lastDay := first.AddDate(0, 1, -1).Day(); day > lastDay {
		day = lastDay
	}
	t = first.AddDate(0, 0, day-1)
	t = t.Add(time.Duration(d.Seconds) * time.Second)
	return Timestamp(t.Unix())
}

// IsZero reports whether d adds nothing.
func (d RelativeDuration) IsZero() bool { return d.Months == 0 && d.Seconds == 0 }

var isoDurationPattern = regexp.MustCompile(
	`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`,
)

// ParseISODuration parses the subset P[nY][nM][nD][T[nH][nM][nS]] of
// ISO-8601 durations, e.g. "PT1H", "PT5M", "P1Y", "P1DT12H".
func ParseISODuration(s string) (RelativeDuration, error) {
	if s == "" || s == "P" {
		return RelativeDuration{}, apperror.NewWithField(
			apperror.CodeInvalidArgument, "empty ISO-8601 duration", "time_resolution")
	}
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return RelativeDuration{}, apperror.NewWithField(
			apperror.CodeInvalidArgument,
			fmt.Sprintf("invalid ISO-8601 duration %q", s), "time_resolution")
	}

	years := parseIntOrZero(m[1])
	months := parseIntOrZero(m[2])
	days := parseIntOrZero(m[3])
	hours := parseIntOrZero(m[4])
	minutes := parseIntOrZero(m[5])
	seconds := parseIntOrZero(m[6])

	d := RelativeDuration{
		Months:  years*12 + months,
		Seconds: days*86400 + hours*3600 + minutes*60 + seconds,
	}
	if d.IsZero() {
		return RelativeDuration{}, apperror.NewWithField(
			apperror.CodeInvalidArgument,
			fmt.Sprintf("ISO-8601 duration %q has no components", s), "time_resolution")
	}
	return d, nil
}

func parseIntOrZero(s string) int64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
