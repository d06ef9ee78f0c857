package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{entry: logrus.NewEntry(l)}
}

func TestLogger_WithContextAddsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	log.WithContext(ctx).WithFields(map[string]any{"ride_id": 7}).Info("ride booked")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-42" {
		t.Errorf("expected request_id req-42, got %v", line["request_id"])
	}
	if line["ride_id"] != float64(7) {
		t.Errorf("expected ride_id 7, got %v", line["ride_id"])
	}
	if line["msg"] != "ride booked" {
		t.Errorf("expected message, got %v", line["msg"])
	}
}

func TestLogger_WithContextWithoutRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newBufferLogger(&buf)
	log.WithContext(context.Background()).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if _, ok := line["request_id"]; ok {
		t.Error("expected no request_id field")
	}
}

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  logrus.Level
	}{
		{level: "debug", want: logrus.DebugLevel},
		{level: "warn", want: logrus.WarnLevel},
		{level: "bogus", want: logrus.InfoLevel},
	}

	for _, tc := range tests {
		log, err := New(Config{Level: tc.level, Format: "text", Output: "stderr"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got := log.entry.Logger.GetLevel(); got != tc.want {
			t.Errorf("level %q: expected %s, got %s", tc.level, tc.want, got)
		}
	}
}
