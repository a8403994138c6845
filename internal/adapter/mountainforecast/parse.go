package mountainforecast

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const forecastTableClass = "forecast__table--js"

var (
	// spaceRe collapses runs of whitespace inside cell text.
	spaceRe = regexp.MustCompile(`\s+`)

	errNoForecastTable = errors.New("forecast table not found")
)

// Row names of the forecast table, matched against the data-row attribute.
const (
	rowDays    = "days"
	rowTime    = "time"
	rowSummary = "summary"
	rowMaxTemp = "max-temperature"
	rowMinTemp = "min-temperature"
)

// ParseForecastTable extracts the day header and the four body rows from a
// forecast page. When maxDays > 0 only the first maxDays non-empty day
// headers are kept and the body rows are cut to the columns they cover.
func ParseForecastTable(doc *html.Node, maxDays int) (domain.ForecastTable, error) {
	table := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClass(n, forecastTableClass)
	})
	if table == nil {
		return domain.ForecastTable{}, errNoForecastTable
	}

	rows := make(map[string]*html.Node)
	for _, tr := range findAll(table, func(n *html.Node) bool { return n.DataAtom == atom.Tr }) {
		if name := attr(tr, "data-row"); name != "" {
			if _, seen := rows[name]; !seen {
				rows[name] = tr
			}
		}
	}

	for _, name := range []string{rowDays, rowTime, rowSummary, rowMaxTemp, rowMinTemp} {
		if rows[name] == nil {
			return domain.ForecastTable{}, fmt.Errorf("forecast table: missing %q row", name)
		}
	}

	days, err := parseDayHeaders(rows[rowDays])
	if err != nil {
		return domain.ForecastTable{}, err
	}

	out := domain.ForecastTable{
		Days:           days,
		Time:           cellTexts(rows[rowTime]),
		Summary:        cellTexts(rows[rowSummary]),
		MaxTemperature: cellTexts(rows[rowMaxTemp]),
		MinTemperature: cellTexts(rows[rowMinTemp]),
	}
	if maxDays > 0 {
		out = limitDays(out, maxDays)
	}
	return out, nil
}

func parseDayHeaders(tr *html.Node) ([]domain.DayHeader, error) {
	var days []domain.DayHeader
	for _, td := range cells(tr) {
		span := 1
		if s := attr(td, "colspan"); s != "" {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("forecast table: invalid colspan %q", s)
			}
			span = n
		}
		days = append(days, domain.DayHeader{Label: clean(textContent(td)), Span: span})
	}
	return days, nil
}

// limitDays keeps the first n non-empty headers, along with any placeholders
// before the cutoff, and truncates the body rows to the covered columns.
func limitDays(t domain.ForecastTable, n int) domain.ForecastTable {
	kept := 0
	cols := 0
	end := len(t.Days)
	for i, h := range t.Days {
		if h.Label == "" {
			continue
		}
		if kept == n {
			end = i
			break
		}
		kept++
		cols += h.Span
	}
	t.Days = t.Days[:end]
	t.Time = truncate(t.Time, cols)
	t.Summary = truncate(t.Summary, cols)
	t.MaxTemperature = truncate(t.MaxTemperature, cols)
	t.MinTemperature = truncate(t.MinTemperature, cols)
	return t
}

func truncate(row domain.RawTableRow, n int) domain.RawTableRow {
	if len(row) > n {
		return row[:n]
	}
	return row
}

// TitleName returns the mountain name from the page title, which reads
// "<name> Weather Forecast ...".
func TitleName(doc *html.Node) string {
	title := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if title == nil {
		return ""
	}
	name, _, _ := strings.Cut(clean(textContent(title)), " Weather")
	return strings.TrimSpace(name)
}

// ElevationLinks returns the absolute URLs of the per-elevation forecasts
// listed on a page, resolved against base.
func ElevationLinks(doc *html.Node, base *url.URL) []string {
	list := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Ul && hasClass(n, "b-elevation__list")
	})
	if list == nil {
		return nil
	}

	var out []string
	for _, a := range findAll(list, func(n *html.Node) bool {
		return n.DataAtom == atom.A && hasClass(n, "js-elevation-link")
	}) {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		out = append(out, base.ResolveReference(ref).String())
	}
	return out
}

// ElevationOf returns the elevation label of a forecast URL: its last path
// segment, e.g. ".../forecasts/2393" -> "2393".
func ElevationOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	path := rawURL
	if err == nil {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	return path[strings.LastIndex(path, "/")+1:]
}

// clean collapses whitespace runs to single spaces and trims the ends.
func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func cellTexts(tr *html.Node) domain.RawTableRow {
	tds := cells(tr)
	row := make(domain.RawTableRow, len(tds))
	for i, td := range tds {
		row[i] = clean(textContent(td))
	}
	return row
}

// cells returns the direct td children of a row.
func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			out = append(out, c)
		}
	}
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
