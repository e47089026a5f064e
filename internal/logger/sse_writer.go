package logger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog"
)

const defaultTimeFormat = time.Kitchen

// SSEPublisher is the slice of sse.Server the writer needs, kept narrow so
// tests can supply a fake.
type SSEPublisher interface {
	Publish(topic string, event *sse.Event)
}

// LogMessage is the JSON shape pushed on the "logs" SSE stream.
type LogMessage struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (m LogMessage) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// SSEWriter converts zerolog JSON lines into SSE events on the "logs" topic.
type SSEWriter struct {
	SSE        SSEPublisher
	TimeFormat string
	PartsOrder []string
}

func defaultPartsOrder() []string {
	return []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		zerolog.MessageFieldName,
	}
}

func NewSSEWriter(srv SSEPublisher, options ...func(w *SSEWriter)) SSEWriter {
	w := SSEWriter{
		SSE:        srv,
		TimeFormat: defaultTimeFormat,
		PartsOrder: defaultPartsOrder(),
	}

	for _, opt := range options {
		opt(&w)
	}

	return w
}

func (w SSEWriter) Write(p []byte) (n int, err error) {
	if w.SSE == nil {
		return 0, nil
	}

	var event map[string]interface{}
	if err := json.Unmarshal(p, &event); err != nil {
		return 0, errors.Wrap(err, "could not decode log event")
	}

	msg := LogMessage{
		Time:    w.formatTime(event[zerolog.TimestampFieldName]),
		Level:   fmt.Sprintf("%v", event[zerolog.LevelFieldName]),
		Message: fmt.Sprintf("%v", event[zerolog.MessageFieldName]),
	}

	data, err := msg.Bytes()
	if err != nil {
		return 0, errors.Wrap(err, "could not encode log message")
	}

	w.SSE.Publish("logs", &sse.Event{Data: data})

	return len(p), nil
}

func (w SSEWriter) formatTime(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}

	t, err := time.Parse(zerolog.TimeFieldFormat, s)
	if err != nil {
		return s
	}

	return t.Format(w.TimeFormat)
}
