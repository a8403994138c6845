package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/mountain-forecast-etl/internal/config"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	cal, err := parseMonth("052024")
	require.NoError(t, err)
	assert.Equal(t, domain.Calendar{Year: 2024, Month: time.May}, cal)

	_, err = parseMonth("2024-05")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DATASET_BACKEND", "csv")

	d := time.Date(2024, time.May, 13, 0, 0, 0, 0, time.UTC)
	require.NoError(t, csvstore.New(dir).Save(context.Background(), domain.Calendar{Year: 2024, Month: time.May},
		domain.Dataset{Records: []domain.TimeSlotRecord{{
			Mountain: "Slesse Peak", Elevation: "2393", DayOfWeek: "Mon", Date: d,
			TimeOfDay: "AM", Summary: "clear", MaxTemperature: "-2", MinTemperature: "-6",
		}}}))

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"render", "052024"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Slesse Peak (2393)")

	cmd = rootCmd()
	cmd.SetArgs([]string{"render", "062024"})
	assert.Error(t, cmd.Execute())
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := &config.Config{DatasetBackend: "parquet", DataDir: filepath.Join(t.TempDir(), "x")}
	_, _, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
}
