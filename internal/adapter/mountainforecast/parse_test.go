package mountainforecast

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const forecastPage = `<!DOCTYPE html>
<html>
<head><title>Slesse Peak Weather Forecast (2393 m)</title></head>
<body>
<ul class="b-elevation__list">
  <li><a class="js-elevation-link" href="/peaks/Slesse-Peak/forecasts/2393">2393 m</a></li>
  <li><a class="js-elevation-link" href="/peaks/Slesse-Peak/forecasts/1500">1500 m</a></li>
  <li><a class="other-link" href="/peaks/Slesse-Peak">overview</a></li>
</ul>
<table class="forecast__table forecast__table--js">
  <thead>
    <tr data-row="days">
      <td colspan="2"><div class="name">Thu</div><div class="date">13</div></td>
      <td colspan="0"></td>
      <td colspan="3">Fri   14</td>
      <td colspan="3">Sat 15</td>
    </tr>
  </thead>
  <tbody>
    <tr data-row="time"><td>9AM</td><td>3PM</td><td>9AM</td><td>3PM</td><td>9PM</td><td>AM</td><td>PM</td><td>night</td></tr>
    <tr data-row="summary"><td>clear</td><td><span> light
      snow </span></td><td>cloudy</td><td>snow shwrs</td><td>clear</td><td>clear</td><td>mod. snow</td><td>clear</td></tr>
    <tr data-row="wind"><td>10</td><td>15</td><td>20</td><td>5</td><td>5</td><td>5</td><td>5</td><td>5</td></tr>
    <tr data-row="max-temperature"><td>-2</td><td>1</td><td>-4</td><td>-3</td><td>-8</td><td>-1</td><td>0</td><td>-6</td></tr>
    <tr data-row="min-temperature"><td>-6</td><td>-3</td><td>-7</td><td>-9</td><td>-12</td><td>-5</td><td>-4</td><td>-10</td></tr>
  </tbody>
</table>
</body>
</html>`

func parseDoc(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestParseForecastTable(t *testing.T) {
	table, err := ParseForecastTable(parseDoc(t, forecastPage), 0)
	require.NoError(t, err)

	assert.Equal(t, []domain.DayHeader{
		{Label: "Thu 13", Span: 2},
		{Label: "", Span: 0},
		{Label: "Fri 14", Span: 3},
		{Label: "Sat 15", Span: 3},
	}, table.Days)
	assert.Equal(t, domain.RawTableRow{"9AM", "3PM", "9AM", "3PM", "9PM", "AM", "PM", "night"}, table.Time)
	assert.Equal(t, "light snow", table.Summary[1])
	assert.Len(t, table.MaxTemperature, 8)
	assert.Equal(t, "-10", table.MinTemperature[7])
}

func TestParseForecastTable_LimitDays(t *testing.T) {
	table, err := ParseForecastTable(parseDoc(t, forecastPage), 2)
	require.NoError(t, err)

	require.Len(t, table.Days, 3)
	assert.Equal(t, "Fri 14", table.Days[2].Label)
	assert.Len(t, table.Time, 5)
	assert.Len(t, table.Summary, 5)
	assert.Len(t, table.MaxTemperature, 5)
	assert.Len(t, table.MinTemperature, 5)

	records, err := domain.Decode(table, "Slesse Peak", "2393", domain.Calendar{Year: 2024, Month: time.June})
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "Fri", records[4].DayOfWeek)
	assert.Equal(t, "9PM", records[4].TimeOfDay)
	assert.Equal(t, "-12", records[4].MinTemperature)
}

func TestParseForecastTable_MissingTable(t *testing.T) {
	_, err := ParseForecastTable(parseDoc(t, `<html><body><p>maintenance</p></body></html>`), 6)
	assert.ErrorIs(t, err, errNoForecastTable)
}

func TestParseForecastTable_MissingRow(t *testing.T) {
	page := strings.Replace(forecastPage, `data-row="min-temperature"`, `data-row="chill"`, 1)
	_, err := ParseForecastTable(parseDoc(t, page), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min-temperature")
}

func TestParseForecastTable_InvalidColspan(t *testing.T) {
	page := strings.Replace(forecastPage, `colspan="2"`, `colspan="two"`, 1)
	_, err := ParseForecastTable(parseDoc(t, page), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colspan")
}

func TestTitleName(t *testing.T) {
	assert.Equal(t, "Slesse Peak", TitleName(parseDoc(t, forecastPage)))
	assert.Empty(t, TitleName(parseDoc(t, `<html><body></body></html>`)))
}

func TestElevationLinks(t *testing.T) {
	base, err := url.Parse("https://www.mountain-forecast.com/")
	require.NoError(t, err)

	links := ElevationLinks(parseDoc(t, forecastPage), base)

	assert.Equal(t, []string{
		"https://www.mountain-forecast.com/peaks/Slesse-Peak/forecasts/2393",
		"https://www.mountain-forecast.com/peaks/Slesse-Peak/forecasts/1500",
	}, links)
}

func TestElevationOf(t *testing.T) {
	assert.Equal(t, "2393", ElevationOf("https://www.mountain-forecast.com/peaks/Slesse-Peak/forecasts/2393"))
	assert.Equal(t, "702", ElevationOf("peaks/Stawamus-Chief/forecasts/702/"))
	assert.Equal(t, "2039", ElevationOf("https://www.mountain-forecast.com/peaks/Yak-Peak/forecasts/2039?units=metric"))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "mod. snow", clean("  mod.\n\t snow "))
	assert.Empty(t, clean(" \n "))
}
