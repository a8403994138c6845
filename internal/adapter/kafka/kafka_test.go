package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRecord() domain.TimeSlotRecord {
	return domain.TimeSlotRecord{
		Mountain:       "Mount Seymour",
		Elevation:      "1449",
		DayOfWeek:      "Fri",
		Date:           time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC),
		TimeOfDay:      "PM",
		Summary:        "light rain",
		MaxTemperature: "7",
		MinTemperature: "2",
	}
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	msg, err := serializeToMessage(testRecord(), now)
	require.NoError(t, err)

	assert.Equal(t, []byte("Mount Seymour|2024-04-26|1449|PM"), msg.Key)
	assert.Contains(t, string(msg.Value), `"summary":"light rain"`)
	assert.Contains(t, string(msg.Value), `"time":"PM"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "mountain", msg.Headers[0].Key)
	assert.Equal(t, []byte("Mount Seymour"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var roundtrip domain.TimeSlotRecord
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.Equal(t, testRecord(), roundtrip)
}

func TestWriter_Publish(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 6, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), nil))
	assert.Empty(t, fw.msgs)

	require.NoError(t, w.Publish(context.Background(), []domain.TimeSlotRecord{testRecord(), testRecord()}))
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("2024-04-26T06:00:00Z"), fw.msgs[1].Headers[1].Value)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	w := &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Publish(context.Background(), []domain.TimeSlotRecord{testRecord()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
