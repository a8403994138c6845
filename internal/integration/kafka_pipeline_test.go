//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/mountain-forecast-etl/internal/adapter/mountainforecast"
	"github.com/couchcryptid/mountain-forecast-etl/internal/config"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/couchcryptid/mountain-forecast-etl/internal/observability"
	"github.com/couchcryptid/mountain-forecast-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-mountain-forecasts"

const slessePage = `<html>
<head><title>Slesse Peak Weather Forecast (2393 m)</title></head>
<body>
<table class="forecast__table forecast__table--js">
  <tr data-row="days"><td colspan="2">Thu 13</td><td colspan="3">Fri 14</td></tr>
  <tr data-row="time"><td>AM</td><td>PM</td><td>AM</td><td>PM</td><td>night</td></tr>
  <tr data-row="summary"><td>clear</td><td>light snow</td><td>cloudy</td><td>snow shwrs</td><td>clear</td></tr>
  <tr data-row="max-temperature"><td>-2</td><td>1</td><td>-4</td><td>-3</td><td>-8</td></tr>
  <tr data-row="min-temperature"><td>-6</td><td>-3</td><td>-7</td><td>-9</td><td>-12</td></tr>
</table>
</body>
</html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("mountain-forecast-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPipelinePublishesToKafka runs a full scrape against a local page server,
// persists the month's CSV dataset, and reads the published records back.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.June, 13, 5, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, slessePage)
	}))
	t.Cleanup(site.Close)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}

	client, err := mountainforecast.NewClient(site.URL+"/", "integration-test", 5*time.Second, 0, discardLogger())
	require.NoError(t, err)
	source := mountainforecast.NewSource(client,
		mountainforecast.DirectoryFile{Path: filepath.Join(t.TempDir(), "urls.json")},
		[]string{"peaks/Slesse-Peak/forecasts/2393"}, nil, 6, discardLogger())

	dataDir := t.TempDir()
	store := csvstore.New(dataDir)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(source, store, writer, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{})

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Inserted)
	assert.Empty(t, res.Failures)

	june := domain.Calendar{Year: 2024, Month: time.June}
	ds, err := store.Load(ctx, june)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, 5, ds.Len())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	keys := make([]string, 0, 5)
	for len(keys) < 5 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from topic")

		var r domain.TimeSlotRecord
		require.NoError(t, json.Unmarshal(msg.Value, &r))
		assert.Equal(t, "Slesse Peak", r.Mountain)
		assert.Equal(t, "2393", r.Elevation)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "Slesse Peak", headers["mountain"])
		assert.Equal(t, "2024-06-13T05:00:00Z", headers["processed_at"])

		keys = append(keys, string(msg.Key))
	}
	assert.Equal(t, "Slesse Peak|2024-06-13|2393|AM", keys[0])
	assert.Equal(t, "Slesse Peak|2024-06-14|2393|night", keys[4])

	// A second run updates every key in place.
	res, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 5, res.Updated)
}
