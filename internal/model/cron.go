package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronFields = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a five field cron expression or a descriptor such as
// @hourly or @every 5m. The returned schedule tells when the monitor is
// started next.
func ParseCron(expr string) (cron.Schedule, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return nil, errors.New("empty cron expression")
	}
	if strings.HasPrefix(e, "@") {
		return cron.ParseStandard(e)
	}
	return cronFields.Parse(e)
}

var isoDurationRx = regexp.MustCompile(`^P(?:(?P<day>\d+)D)?(?P<t>T)?(?:(?P<hour>[+-]?\d+)H)?(?:(?P<minute>[+-]?\d+)M)?(?:(?P<second>[+-]?\d+(?:[.,]\d+)?)S)?$`)

var ErrISOFormat error = errors.New("invalid ISO8601 duration")

var isoUnits = map[string]time.Duration{
	"day":    24 * time.Hour,
	"hour":   time.Hour,
	"minute": time.Minute,
	"second": time.Second,
}

// ParseISODuration converts the day and time part of an ISO 8601 duration.
// Years and months have no fixed length and are rejected, so P2M is an
// error while PT2M is two minutes.
func ParseISODuration(dur string) (time.Duration, error) {
	match := isoDurationRx.FindStringSubmatch(dur)
	if match == nil {
		return 0, ErrISOFormat
	}

	var (
		total      time.Duration
		components int
		clock      bool
		timePart   = match[isoDurationRx.SubexpIndex("t")] != ""
	)
	for i, name := range isoDurationRx.SubexpNames() {
		unit, ok := isoUnits[name]
		if !ok || match[i] == "" {
			continue
		}
		switch name {
		case "hour":
			timePart = true
			clock = true
		case "minute", "second":
			if !timePart {
				return 0, ErrISOFormat
			}
			clock = true
		}
		d, err := isoComponent(match[i], unit)
		if err != nil {
			return 0, err
		}
		total += d
		components++
	}

	// P, PT and P1DT
	if components == 0 || (timePart && !clock) {
		return 0, ErrISOFormat
	}
	return total, nil
}

func isoComponent(s string, unit time.Duration) (time.Duration, error) {
	whole, frac, _ := strings.Cut(strings.Replace(s, ",", ".", 1), ".")
	if len(frac) > 9 {
		return 0, ErrISOFormat
	}
	n, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("parsing number: %w", err)
	}
	d := time.Duration(n) * unit
	if frac == "" {
		return d, nil
	}
	f, err := strconv.ParseFloat("0."+frac, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing fraction: %w", err)
	}
	part := time.Duration(f * float64(unit))
	if strings.HasPrefix(whole, "-") {
		return d - part, nil
	}
	return d + part, nil
}

// ParseInterval accepts either an ISO 8601 duration (PT6M) or a Go duration
// string (6m). The result must be positive.
func ParseInterval(s string) (time.Duration, error) {
	var d time.Duration
	var err error
	if strings.HasPrefix(s, "P") {
		d, err = ParseISODuration(s)
	} else {
		d, err = time.ParseDuration(s)
	}
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
