// Command decodepage decodes a saved forecast page offline and prints the
// aligned records. It is useful for checking parser and alignment changes
// against captured HTML without touching the live site.
//
// Usage:
//
//	go run ./cmd/decodepage \
//	  -page testdata/slesse-peak-2393.html \
//	  -date 2024-05-13 \
//	  [-days 6] [-resolve-months] [-json]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/mountainforecast"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/couchcryptid/mountain-forecast-etl/internal/render"
	"golang.org/x/net/html"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decodepage", flag.ContinueOnError)
	page := fs.String("page", "", "path to a saved forecast page")
	date := fs.String("date", "", "scrape date as YYYY-MM-DD (default: today)")
	days := fs.Int("days", 6, "number of forecast days to keep")
	mountain := fs.String("mountain", "", "mountain name (default: page title)")
	elevation := fs.String("elevation", "", "elevation label (default: file name without extension)")
	resolve := fs.Bool("resolve-months", false, "advance the month when day numbers roll over")
	asJSON := fs.Bool("json", false, "print records as JSON instead of a grid")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *page == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -page")
	}

	cal := domain.Today()
	if *date != "" {
		t, err := domain.ParseDate(*date)
		if err != nil {
			return err
		}
		cal = domain.CalendarAt(t)
	}

	f, err := os.Open(*page)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", *page, err)
	}

	table, err := mountainforecast.ParseForecastTable(doc, *days)
	if err != nil {
		return err
	}
	if *resolve {
		table.Days = domain.ResolveMonths(table.Days, cal)
	}

	name := *mountain
	if name == "" {
		name = mountainforecast.TitleName(doc)
	}
	elev := *elevation
	if elev == "" {
		elev = strings.TrimSuffix(filepath.Base(*page), filepath.Ext(*page))
	}

	records, err := domain.Decode(table, name, elev, cal)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return render.NewGrid().Render(stdout, []domain.MountainForecast{{
		Mountain:  name,
		Elevation: elev,
		Records:   records,
	}})
}
