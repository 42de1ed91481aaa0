// README: Lead-time classification: how far in the future a pickup is.
package tariff

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type LeadTimeMode string

const (
	ModeImmediate   LeadTimeMode = "immediate"
	ModeReservation LeadTimeMode = "reservation"
)

// LeadTime is the outcome of classifying a pickup moment against a threshold.
// DeltaMinutes is nil when the pickup timestamp could not be built.
type LeadTime struct {
	Mode         LeadTimeMode
	DeltaMinutes *int
}

// ClassifyLeadTime decides whether a pickup is "immediate" (less than
// thresholdMinutes away from now) or a "reservation". A missing time defaults
// to midnight; an unparsable date or time fails open to reservation so that
// no surcharge is ever applied on malformed input.
func ClassifyLeadTime(pickupDate, pickupTime string, thresholdMinutes int, now time.Time) LeadTime {
	pickupAt, ok := parsePickupAt(pickupDate, pickupTime, now.Location())
	if !ok {
		return LeadTime{Mode: ModeReservation}
	}
	delta := int(pickupAt.Sub(now).Minutes())
	mode := ModeReservation
	if delta < thresholdMinutes {
		mode = ModeImmediate
	}
	return LeadTime{Mode: mode, DeltaMinutes: &delta}
}

var (
	isoDateRe    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	frenchDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockRe      = regexp.MustCompile(`^(\d{1,2})(?:[:hH](\d{2})?)?$`)
)

func parsePickupAt(date, clock string, loc *time.Location) (time.Time, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, false
	}
	var year, month, day int
	switch {
	case isoDateRe.MatchString(date):
		m := isoDateRe.FindStringSubmatch(date)
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	case frenchDateRe.MatchString(date):
		m := frenchDateRe.FindStringSubmatch(date)
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	default:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	hour, minute, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}

// parseClock accepts "HH:mm", "HHhmm", "HHh" and a bare hour. An empty string
// defaults to midnight.
func parseClock(clock string) (hour, minute int, ok bool) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return 0, 0, true
	}
	m := clockRe.FindStringSubmatch(clock)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
