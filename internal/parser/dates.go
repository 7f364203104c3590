package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/KaramelBytes/insitu-cli/internal/utils"
	"github.com/relvacode/iso8601"
)

// Layouts tried for naive timestamps, in order. A T between date and time is
// replaced by a dash before parsing. Month, day and hour fields accept one or
// two digits.
var timestampLayouts = []string{
	"2006-1-2-15:04:05",
	"2006-1-2-15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2 3:04:05 PM",
	"2006-1-2 3:04 PM",
	"2006-01-02 1504",
	"2006-1-2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06 3:04 PM",
	"1/2/06",
	"2-Jan-2006 15:04",
	"2-Jan-2006",
	"2-Jan-06 15:04",
	"2-Jan-06",
	"20060102",
}

var (
	explicitZone = regexp.MustCompile(`(Z|[+-]\d{2}:?\d{2})$`)
	dateTimeT    = regexp.MustCompile(`(\d)T(\d)`)
)

// parseTimestamp parses s as a naive wall clock time. When s carries an
// explicit offset the returned time is aware and zoned is true.
func parseTimestamp(s string) (t time.Time, zoned bool, err error) {
	s = strings.TrimSpace(s)
	naive := dateTimeT.ReplaceAllString(s, "$1-$2")
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, naive); err == nil {
			return t, false, nil
		}
	}
	t, err = iso8601.ParseString(s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, explicitZone.MatchString(s), nil
}

// localize reads the wall clock of a naive time in tz and converts to UTC.
func localize(t time.Time, zoned bool, tz string) (time.Time, error) {
	if zoned {
		return t.UTC(), nil
	}
	if tz == "" {
		return time.Time{}, ErrMissingTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), loc).UTC(), nil
}

// expandShortDate rewrites a bare MMDDYY token to 20YY-MM-DD.
func expandShortDate(d string) string {
	d = strings.TrimSpace(d)
	if len(d) != 6 || strings.Trim(d, "0123456789") != "" {
		return d
	}
	return fmt.Sprintf("20%s-%s-%s", d[4:6], d[0:2], d[2:4])
}

// ResolveDateTime derives the single UTC timestamp of a header. Attempts, in
// order: one key naming both date and time; separate date and time keys; a
// date key alone; the GPR utcyear/utcdoy/utctod triple. Only the GPR triple
// is already UTC; everything else is read as wall clock time in tz.
func ResolveDateTime(h *Header, tz string) (time.Time, error) {
	for _, k := range h.Keys() {
		if !strings.Contains(k, "date") || !strings.Contains(k, "time") {
			continue
		}
		v := h.Value(k)
		if v == "" {
			continue
		}
		t, zoned, err := parseTimestamp(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", k, err)
		}
		return localize(t, zoned, tz)
	}

	if date := h.Value("date"); date != "" {
		// MMDDYY only appears next to a separate time field.
		s := date
		if tm := utils.ParseNone(h.Value("time")); tm != nil {
			s = expandShortDate(date) + " " + strings.TrimSpace(*tm)
		}
		t, zoned, err := parseTimestamp(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("date: %w", err)
		}
		return localize(t, zoned, tz)
	}

	if h.Value("utcyear") != "" && h.Value("utcdoy") != "" && h.Value("utctod") != "" {
		return gprDateTime(h.Value("utcyear"), h.Value("utcdoy"), h.Value("utctod"))
	}

	return time.Time{}, ErrMissingDateTime
}

// gprDateTime builds a UTC time from a year, a 1-based day of year and a
// zulu time of day written HHMMSS.fff.
func gprDateTime(year, doy, tod string) (time.Time, error) {
	y, err := strconv.ParseFloat(strings.TrimSpace(year), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("utcyear: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(doy), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("utcdoy: %w", err)
	}
	whole, frac, _ := strings.Cut(strings.TrimSpace(tod), ".")
	if len(whole) > 6 {
		return time.Time{}, fmt.Errorf("utctod %q: expected HHMMSS.fff", tod)
	}
	whole = strings.Repeat("0", 6-len(whole)) + whole
	hh, err1 := strconv.Atoi(whole[0:2])
	mm, err2 := strconv.Atoi(whole[2:4])
	ss, err3 := strconv.Atoi(whole[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("utctod %q: expected HHMMSS.fff", tod)
	}
	var ms int
	if frac != "" {
		f, err := strconv.ParseFloat("0."+frac, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("utctod %q: %w", tod, err)
		}
		ms = int(f * 1000)
	}
	base := time.Date(int(y), time.January, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(d)-1).Add(
		time.Duration(hh)*time.Hour +
			time.Duration(mm)*time.Minute +
			time.Duration(ss)*time.Second +
			time.Duration(ms)*time.Millisecond,
	), nil
}
