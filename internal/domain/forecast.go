package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk and key format of a record's date.
const DateLayout = time.DateOnly

// DayHeader is one cell of the table's day row.
type DayHeader struct {
	Label string // e.g. "Thu 13"; empty for placeholder cells
	Span  int    // number of time-of-day columns covered (colspan)

	// Optional explicit calendar for this day. Zero Month means the
	// Calendar passed to Decode applies.
	Year  int
	Month time.Month
}

// RawTableRow is a flat sequence of cleaned cell texts, one per column.
type RawTableRow []string

// ForecastTable is the parsed shape of one forecast page.
type ForecastTable struct {
	Days           []DayHeader
	Time           RawTableRow
	Summary        RawTableRow
	MaxTemperature RawTableRow
	MinTemperature RawTableRow
}

// Columns returns the number of body columns, or -1 if the rows disagree.
func (t ForecastTable) Columns() int {
	n := len(t.Time)
	if len(t.Summary) != n || len(t.MaxTemperature) != n || len(t.MinTemperature) != n {
		return -1
	}
	return n
}

// TimeSlotRecord is one (day, time-of-day) observation for a mountain at an
// elevation.
type TimeSlotRecord struct {
	Mountain       string    `json:"mountain"`
	Elevation      string    `json:"elevation"`
	DayOfWeek      string    `json:"day_of_week"`
	Date           time.Time `json:"date"`
	TimeOfDay      string    `json:"time"`
	Summary        string    `json:"summary"`
	MaxTemperature string    `json:"max_temperature"`
	MinTemperature string    `json:"min_temperature"`
}

// Key is the composite identity of a record within a dataset.
type Key struct {
	Mountain  string
	Date      string
	Elevation string
	Time      string
}

// String renders the key as "mountain|date|elevation|time".
func (k Key) String() string {
	return strings.Join([]string{k.Mountain, k.Date, k.Elevation, k.Time}, "|")
}

// Key returns the record's composite identity.
func (r TimeSlotRecord) Key() Key {
	return Key{
		Mountain:  r.Mountain,
		Date:      r.Date.Format(DateLayout),
		Elevation: r.Elevation,
		Time:      r.TimeOfDay,
	}
}

// ForecastPage identifies one forecast page: a mountain at one elevation.
type ForecastPage struct {
	Mountain  string `json:"mountain"`
	Elevation string `json:"elevation"`
	URL       string `json:"url"`
}

// MountainForecast is the decoded forecast of one mountain page.
type MountainForecast struct {
	Mountain  string           `json:"mountain"`
	Elevation string           `json:"elevation"`
	Records   []TimeSlotRecord `json:"records"`
}

// Flatten concatenates the records of all forecasts in order.
func Flatten(forecasts []MountainForecast) []TimeSlotRecord {
	var n int
	for _, f := range forecasts {
		n += len(f.Records)
	}
	out := make([]TimeSlotRecord, 0, n)
	for _, f := range forecasts {
		out = append(out, f.Records...)
	}
	return out
}

// Dataset is the persisted, key-unique collection of records for one month.
// A nil *Dataset means no dataset exists yet.
type Dataset struct {
	Records []TimeSlotRecord
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// Group splits the dataset back into per-mountain, per-elevation forecasts,
// preserving first-seen order.
func (d Dataset) Group() []MountainForecast {
	index := make(map[[2]string]int)
	var out []MountainForecast
	for _, r := range d.Records {
		k := [2]string{r.Mountain, r.Elevation}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, MountainForecast{Mountain: r.Mountain, Elevation: r.Elevation})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

// ParseDate parses a stored "2006-01-02" date into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Weekday returns the three-letter weekday abbreviation used in labels.
func Weekday(t time.Time) string {
	return t.Weekday().String()[:3]
}
