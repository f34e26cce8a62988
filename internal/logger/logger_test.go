package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})
	log.Info("record committed")

	assert.Contains(t, buf.String(), `"msg":"record committed"`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNew_FormatFromEnvironment(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf}).Info("hello")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), colorBold+"hello"+colorReset)
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "json", Environment: "development", Writer: &buf}).Info("x")
	assert.Contains(t, buf.String(), `"msg":"x"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Attributes(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.Info("tags added", "count", 3, "record_type", "bookmark")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "count=3")
	assert.Contains(t, out, "record_type=bookmark")
}

func TestPrettyHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	assert.Equal(t, h, h.WithGroup(""))

	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("svc", "api")}).WithGroup("fee"))
	log.Info("computed", "wei", "300")

	out := buf.String()
	assert.Contains(t, out, "svc=api")
	assert.Contains(t, out, "fee.wei=300")
}

func TestPrettyHandler_Source(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true})).Info("src")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatLevel(t *testing.T) {
	s, c := formatLevel(slog.LevelWarn)
	assert.Equal(t, "WRN", s)
	assert.Equal(t, colorYellow, c)

	s, c = formatLevel(slog.LevelError + 4)
	assert.Equal(t, (slog.LevelError + 4).String(), s)
	assert.Equal(t, colorGray, c)
}

func TestFormatValue(t *testing.T) {
	now := time.Now()
	assert.Equal(t, now.Format(time.RFC3339), formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Writer: &buf})

	log.WithError(errors.New("boom")).
		WithField("action", "append").
		Info("mutation failed")

	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"action":"append"`)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.NotPanics(t, func() { log.Info("dropped") })
}
