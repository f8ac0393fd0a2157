package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bazaar-next/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestTrackerDisabledWithoutBrokers(t *testing.T) {
	tracker := NewKafkaTracker(config.KafkaConfig{Brokers: " , "})
	assert.False(t, tracker.Enabled())
	assert.NoError(t, tracker.TrackEvent(context.Background(), 1, "checkout", Event{Type: "purchase"}))
	assert.NoError(t, tracker.Close())
}

func TestTrackerKeysMessagesByUser(t *testing.T) {
	writer := &recordingWriter{}
	tracker := &KafkaTracker{writer: writer, writeTimeout: defaultWriteTimeout}

	err := tracker.TrackEvent(context.Background(), 7, "checkout", Event{
		Type:     "purchase",
		TargetID: "CK1",
		Metadata: map[string]interface{}{"revenue": "60150.00", "order_count": 2},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "7", string(writer.messages[0].Key))

	var body envelope
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &body))
	assert.Equal(t, "purchase", body.Type)
	assert.Equal(t, "CK1", body.TargetID)
	assert.Equal(t, "checkout", body.Channel)
	assert.NotEmpty(t, body.EventID)
	assert.EqualValues(t, 2, body.Metadata["order_count"])

	require.NoError(t, tracker.Close())
	assert.True(t, writer.closed)
}

func TestTrackerPropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	tracker := &KafkaTracker{writer: &recordingWriter{err: boom}, writeTimeout: defaultWriteTimeout}
	err := tracker.TrackEvent(context.Background(), 1, "checkout", Event{Type: "purchase"})
	assert.ErrorIs(t, err, boom)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092 ,,b:9092"))
}
