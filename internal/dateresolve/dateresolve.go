// Package dateresolve parses the date-range options accepted by the
// search dispatcher and list/recent/today commands into a concrete
// [start, end) instant range in UTC.
package dateresolve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	grerrors "github.com/grans-cli/grans/internal/errors"
)

// Range is a half-open [Start, End) instant range in UTC. A nil bound is
// unbounded on that side.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Options mirrors the three orthogonal inputs accepted by the resolver.
// Date, when non-empty, overrides From/To.
type Options struct {
	From string
	To   string
	Date string
}

// relativePeriods is the closed set of values Options.Date accepts.
var relativePeriods = map[string]bool{
	"today": true, "yesterday": true,
	"this-week": true, "last-week": true,
	"this-month": true, "last-month": true,
}

// Resolver resolves date options against a fixed location, so the
// configured timezone and week-start convention are applied consistently.
type Resolver struct {
	loc       *time.Location
	weekStart time.Weekday
	parser    *when.Parser
}

// New builds a Resolver. timezone is an IANA zone name; empty means the
// system local zone. weekStart is "monday" (default) or "sunday".
func New(timezone, weekStart string) (*Resolver, error) {
	loc := time.Local
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, grerrors.ConfigError(fmt.Sprintf("invalid timezone %q", timezone), err)
		}
		loc = l
	}

	ws := time.Monday
	if strings.EqualFold(weekStart, "sunday") {
		ws = time.Sunday
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return &Resolver{loc: loc, weekStart: ws, parser: w}, nil
}

// Resolve parses opts into a UTC range. An empty Options yields an
// unbounded range.
func (r *Resolver) Resolve(opts Options) (Range, error) {
	if opts.Date != "" {
		return r.resolveRelativePeriod(opts.Date)
	}

	var rng Range
	if opts.From != "" {
		t, err := r.resolveBound(opts.From, true)
		if err != nil {
			return Range{}, err
		}
		rng.Start = &t
	}
	if opts.To != "" {
		t, err := r.resolveBound(opts.To, false)
		if err != nil {
			return Range{}, err
		}
		rng.End = &t
	}
	return rng, nil
}

func (r *Resolver) resolveRelativePeriod(date string) (Range, error) {
	date = strings.ToLower(strings.TrimSpace(date))
	if !relativePeriods[date] {
		return Range{}, grerrors.ValidationError(fmt.Sprintf("unrecognized date value %q", date), nil)
	}

	now := time.Now().In(r.loc)

	switch date {
	case "today":
		start := startOfDay(now, r.loc)
		return boundedRange(start, start.AddDate(0, 0, 1)), nil
	case "yesterday":
		start := startOfDay(now, r.loc).AddDate(0, 0, -1)
		return boundedRange(start, start.AddDate(0, 0, 1)), nil
	case "this-week":
		start := startOfWeek(now, r.loc, r.weekStart)
		return boundedRange(start, start.AddDate(0, 0, 7)), nil
	case "last-week":
		start := startOfWeek(now, r.loc, r.weekStart).AddDate(0, 0, -7)
		return boundedRange(start, start.AddDate(0, 0, 7)), nil
	case "this-month":
		start := startOfMonth(now, r.loc)
		return boundedRange(start, start.AddDate(0, 1, 0)), nil
	case "last-month":
		start := startOfMonth(now, r.loc).AddDate(0, -1, 0)
		return boundedRange(start, start.AddDate(0, 1, 0)), nil
	}

	// Anchor via the natural-language parser for resilience to future
	// additions to the closed set; the boundary snapping above is what
	// actually governs the exact instants for the cases handled there.
	result, err := r.parser.Parse(date, now)
	if err != nil || result == nil {
		return Range{}, grerrors.ValidationError(fmt.Sprintf("could not resolve date value %q", date), err)
	}
	start := startOfDay(result.Time.In(r.loc), r.loc)
	return boundedRange(start, start.AddDate(0, 0, 1)), nil
}

func boundedRange(start, end time.Time) Range {
	s, e := start.UTC(), end.UTC()
	return Range{Start: &s, End: &e}
}

// resolveBound parses a from/to grammar value. isFrom selects start-of-day
// vs end-of-day for a bare YYYY-MM-DD.
func (r *Resolver) resolveBound(value string, isFrom bool) (time.Time, error) {
	value = strings.TrimSpace(value)

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	if t, err := time.ParseInLocation("2006-01-02", value, r.loc); err == nil {
		if isFrom {
			return t.UTC(), nil
		}
		return t.AddDate(0, 0, 1).UTC(), nil
	}

	if d, ok := parseDurationShorthand(value); ok {
		return time.Now().Add(-d).UTC(), nil
	}

	return time.Time{}, grerrors.ValidationError(fmt.Sprintf("unrecognized date value %q", value), nil)
}

// parseDurationShorthand parses "<N>[dwmy]" as N days/weeks/months/years.
// Months and years are approximated at 30 and 365 days respectively,
// consistent with a relative "N units ago" offset rather than a
// calendar-exact one.
func parseDurationShorthand(value string) (time.Duration, bool) {
	if len(value) < 2 {
		return 0, false
	}
	unit := value[len(value)-1]
	numPart := value[:len(value)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil || n < 0 {
		return 0, false
	}

	day := 24 * time.Hour
	switch unit {
	case 'd':
		return time.Duration(n) * day, true
	case 'w':
		return time.Duration(n) * 7 * day, true
	case 'm':
		return time.Duration(n) * 30 * day, true
	case 'y':
		return time.Duration(n) * 365 * day, true
	default:
		return 0, false
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

func startOfWeek(t time.Time, loc *time.Location, weekStart time.Weekday) time.Time {
	day := startOfDay(t, loc)
	offset := int(day.Weekday() - weekStart)
	if offset < 0 {
		offset += 7
	}
	return day.AddDate(0, 0, -offset)
}
