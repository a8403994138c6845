// Package domain models mountain-forecast.com forecast tables and the
// monthly dataset built from them.
//
// # Data Source
//
// Each mountain (and each elevation of a mountain) has a forecast page with a
// single table of class "forecast__table forecast__table--js". The adapter in
// internal/adapter/mountainforecast flattens that table into a [ForecastTable]
// before anything in this package sees it.
//
// # Table Layout
//
// The header row has one cell per day. Each cell spans several time-of-day
// columns through its colspan:
//
//	| Thu 13        | Fri 14              |
//	| 9AM  | 3PM    | 9AM  | 3PM  | 9PM   |
//	| clear| cloudy | clear| snow | snow  |
//
// Body rows are flat: one cell per column. The first and last day are usually
// partial (fewer than three slots), which is why spans vary. Placeholder header
// cells with an empty label appear as a rendering artifact and carry no data.
//
// Labels are "<weekday> <day-of-month>", e.g. "Thu 13". The page never shows
// a month or year, so the caller supplies a [Calendar]. A day-of-month that
// goes backwards inside one table means the forecast crossed into the next
// month; [Decode] reports that as [ErrAmbiguousMonthBoundary] instead of
// guessing.
//
// # Alignment
//
// Columns are attributed to days with a running offset: a day with span n
// owns the next n columns. Empty-label headers are skipped and do not move
// the offset. See [Decode].
//
// # Dataset
//
// Records are identified by (mountain, date, elevation, time). One dataset
// exists per calendar month. New scrapes are folded in with [Merge]: incoming
// records replace stored ones with the same key and everything else is kept.
package domain
