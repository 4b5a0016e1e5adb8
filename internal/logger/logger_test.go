package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger(level, format)
	defer InitLogger("info", FormatText)

	fn()

	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:  "info log",
			level: "info",
			logFn: func() {
				Info("test info message")
			},
			contains: []string{"test info message", "level=INFO"},
		},
		{
			name:  "debug log with debug level",
			level: "debug",
			logFn: func() {
				Debug("test debug message")
			},
			contains: []string{"test debug message", "level=DEBUG"},
		},
		{
			name:  "debug log with info level",
			level: "info",
			logFn: func() {
				Debug("test debug message")
			},
			excludes: []string{"test debug message"},
		},
		{
			name:  "fields are rendered",
			level: "info",
			logFn: func() {
				Warn("backup created", Fields{"path": "MyExt/MyExt.mod"})
			},
			contains: []string{"backup created", "path=MyExt/MyExt.mod", "level=WARN"},
		},
		{
			name:  "success carries status",
			level: "info",
			logFn: func() {
				Success("installed")
			},
			contains: []string{"installed", "status=success"},
		},
		{
			name:  "formatted error",
			level: "error",
			logFn: func() {
				Infof("hidden %d", 1)
				Errorf("failed %s", "copy")
			},
			contains: []string{"failed copy"},
			excludes: []string{"hidden 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, s := range tt.contains {
				assert.Contains(t, output, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, output, s)
			}
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	output := captureOutput(t, "info", FormatJSON, func() {
		Info("json message", Fields{"component": "MyExt"})
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &record))
	assert.Equal(t, "json message", record["msg"])
	assert.Equal(t, "MyExt", record["component"])
}

func TestWith(t *testing.T) {
	output := captureOutput(t, "info", FormatText, func() {
		With(Fields{"package": "demo"}).Info("scoped")
	})
	assert.Contains(t, output, "package=demo")
	assert.Contains(t, output, "scoped")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
