package logger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSSE is a simple mock for sse.Server
type mockSSE struct {
	lastPublishedEvent *sse.Event
	lastPublishedTopic string
}

// Publish implements the SSEPublisher interface for mockSSE
func (m *mockSSE) Publish(topic string, event *sse.Event) {
	m.lastPublishedTopic = topic
	m.lastPublishedEvent = event
}

func TestNewSSEWriter(t *testing.T) {
	var mockSrv SSEPublisher = &mockSSE{}
	writer := NewSSEWriter(mockSrv)

	assert.Equal(t, mockSrv, writer.SSE)
	assert.Equal(t, defaultTimeFormat, writer.TimeFormat)
	assert.Equal(t, defaultPartsOrder(), writer.PartsOrder)
}

func TestNewSSEWriter_WithOptions(t *testing.T) {
	mockSrv := &mockSSE{}
	customTimeFormat := "2006-01-02"

	writer := NewSSEWriter(mockSrv, func(w *SSEWriter) {
		w.TimeFormat = customTimeFormat
		w.PartsOrder = []string{zerolog.LevelFieldName}
	})

	assert.Equal(t, customTimeFormat, writer.TimeFormat)
	assert.Equal(t, []string{zerolog.LevelFieldName}, writer.PartsOrder)
}

func TestSSEWriter_Write_NilSSE(t *testing.T) {
	writer := SSEWriter{SSE: nil}
	n, err := writer.Write([]byte(`{"level":"info","message":"test"}`))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestSSEWriter_Write_InvalidJSON(t *testing.T) {
	writer := NewSSEWriter(&mockSSE{})
	_, err := writer.Write([]byte(`invalid json`))
	assert.Error(t, err)
}

func TestSSEWriter_Write_Successful(t *testing.T) {
	mockSrv := &mockSSE{}
	writer := NewSSEWriter(mockSrv)

	logTime := time.Now()
	logEvent := map[string]interface{}{
		zerolog.TimestampFieldName: logTime.Format(zerolog.TimeFieldFormat),
		zerolog.LevelFieldName:     zerolog.LevelInfoValue,
		zerolog.MessageFieldName:   "test message",
	}
	jsonData, err := json.Marshal(logEvent)
	require.NoError(t, err)

	n, err := writer.Write(jsonData)
	require.NoError(t, err)
	assert.Equal(t, len(jsonData), n)

	assert.Equal(t, "logs", mockSrv.lastPublishedTopic)
	require.NotNil(t, mockSrv.lastPublishedEvent)

	var publishedMsg LogMessage
	require.NoError(t, json.Unmarshal(mockSrv.lastPublishedEvent.Data, &publishedMsg))
	assert.Equal(t, "info", publishedMsg.Level)
	assert.Equal(t, "test message", publishedMsg.Message)
	assert.Equal(t, logTime.Format(defaultTimeFormat), publishedMsg.Time)
}
