package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// labelRe splits a day label into weekday and day-of-month,
// e.g. "Thu 13" -> ("Thu", "13"). Trailing text after the number is ignored.
var labelRe = regexp.MustCompile(`^(\S+)\s+(\d{1,2})`)

// Calendar is the month a table is decoded against. Day is the current
// day-of-month of the scrape and seeds rollover detection; zero disables it.
type Calendar struct {
	Year  int
	Month time.Month
	Day   int
}

// CalendarAt returns the calendar of t in UTC.
func CalendarAt(t time.Time) Calendar {
	t = t.UTC()
	return Calendar{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Decode aligns a forecast table into time-slot records.
//
// Each non-empty header owns the next Span body columns, starting where the
// previous day ended. A label whose weekday disagrees with its resolved date
// is rejected with ErrInvalidDayLabel. Empty-label headers are skipped without consuming
// columns. The rows must have equal length and that length must equal the
// summed span of the non-empty headers.
func Decode(table ForecastTable, mountain, elevation string, cal Calendar) ([]TimeSlotRecord, error) {
	cols := table.Columns()
	if cols < 0 {
		return nil, decodeErr(mountain, -1, ErrMismatchedColumnCount,
			"time=%d summary=%d max=%d min=%d",
			len(table.Time), len(table.Summary), len(table.MaxTemperature), len(table.MinTemperature))
	}

	records := make([]TimeSlotRecord, 0, cols)
	start := 0
	highest := cal.Day

	for i, h := range table.Days {
		label := strings.TrimSpace(h.Label)
		if label == "" {
			continue
		}

		weekday, day, ok := parseDayLabel(label)
		if !ok {
			return nil, decodeErr(mountain, i, ErrInvalidDayLabel, "label %q", label)
		}
		if h.Span < 0 || start+h.Span > cols {
			return nil, decodeErr(mountain, i, ErrOutOfRange,
				"span %d at column %d exceeds %d columns", h.Span, start, cols)
		}

		year, month := cal.Year, cal.Month
		if h.Month != 0 {
			year, month = h.Year, h.Month
		} else {
			if day < highest {
				return nil, decodeErr(mountain, i, ErrAmbiguousMonthBoundary,
					"day %d follows day %d in %s %d", day, highest, month, year)
			}
			highest = day
		}

		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if date.Day() != day || date.Month() != month {
			return nil, decodeErr(mountain, i, ErrInvalidDayLabel,
				"%s %d has no day %d", month, year, day)
		}
		if !sameWeekday(weekday, date) {
			return nil, decodeErr(mountain, i, ErrInvalidDayLabel,
				"%s is a %s, label says %q", date.Format(time.DateOnly), Weekday(date), weekday)
		}

		for j := start; j < start+h.Span; j++ {
			records = append(records, TimeSlotRecord{
				Mountain:       mountain,
				Elevation:      elevation,
				DayOfWeek:      Weekday(date),
				Date:           date,
				TimeOfDay:      table.Time[j],
				Summary:        table.Summary[j],
				MaxTemperature: table.MaxTemperature[j],
				MinTemperature: table.MinTemperature[j],
			})
		}
		start += h.Span
	}

	if start != cols {
		return nil, decodeErr(mountain, -1, ErrMismatchedColumnCount,
			"headers span %d columns, rows have %d", start, cols)
	}
	return records, nil
}

// ResolveMonths stamps an explicit year and month on every non-empty header,
// advancing to the next month each time the day-of-month goes backwards.
// Headers that already carry a month are left alone. It is the opt-in answer
// to ErrAmbiguousMonthBoundary for callers that accept the rollover guess.
func ResolveMonths(days []DayHeader, cal Calendar) []DayHeader {
	out := make([]DayHeader, len(days))
	copy(out, days)

	year, month := cal.Year, cal.Month
	highest := cal.Day
	for i := range out {
		if out[i].Month != 0 {
			continue
		}
		_, day, ok := parseDayLabel(strings.TrimSpace(out[i].Label))
		if !ok {
			continue
		}
		if day < highest {
			next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
			year, month = next.Year(), next.Month()
		}
		highest = day
		out[i].Year, out[i].Month = year, month
	}
	return out
}

// parseDayLabel extracts weekday and day-of-month from a label like "Thu 13".
func parseDayLabel(label string) (string, int, bool) {
	m := labelRe.FindStringSubmatch(label)
	if len(m) != 3 {
		return "", 0, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil || day < 1 || day > 31 {
		return "", 0, false
	}
	return m[1], day, true
}

// sameWeekday reports whether a label's weekday names the weekday of date.
// Only the first three letters are compared, ignoring case.
func sameWeekday(label string, date time.Time) bool {
	return len(label) >= 3 && strings.EqualFold(label[:3], Weekday(date))
}
