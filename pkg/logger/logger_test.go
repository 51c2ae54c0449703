package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhsclient/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "invalid"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "xhs.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, level)
	require.NoError(t, err)
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("visible warn")
	l.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "visible error")
}

func TestWithFieldsChaining(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.WithField("endpoint", "/api/sns/web/v1/homefeed").
		WithFields(map[string]interface{}{"page": 2, "cached": true}).
		Info("chained")

	out := buf.String()
	assert.Contains(t, out, `"endpoint":"/api/sns/web/v1/homefeed"`)
	assert.Contains(t, out, `"page":2`)
	assert.Contains(t, out, `"cached":true`)
}

func TestDerivedLoggersAreIndependent(t *testing.T) {
	base, buf := newBufferLogger(t, "debug")

	_ = base.WithField("leaked", "no")
	base.Info("plain")

	assert.NotContains(t, buf.String(), "leaked")
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("token service down")).Error("request failed")
	assert.Contains(t, buf.String(), "token service down")
}

func TestStructuredFieldTypes(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.InfoWithFields("all types", map[string]interface{}{
		"string":   "x",
		"int":      42,
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
	})

	out := buf.String()
	assert.Contains(t, out, `"int":42`)
	assert.Contains(t, out, `"strings":["a","b"]`)
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "disabled"}))
	assert.NotNil(t, GetLogger())

	Debug("debug")
	Info("info")
	WithField("k", "v").Warn("field")
	WithError(errors.New("e")).Error("err")
}

func TestTestLoggerCapturesFields(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("note_id", "abc").WithError(errors.New("boom")).WarnWithFields("comments failed", map[string]interface{}{"page": 3})
	tl.Info("done")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "abc", msgs[0].Fields["note_id"])
	assert.Equal(t, 3, msgs[0].Fields["page"])
	assert.EqualError(t, msgs[0].Error, "boom")
	assert.True(t, tl.HasMessage("done"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "POST", "http://x", 200, time.Millisecond)
	LogRequest(tl, "POST", "http://x", 404, time.Millisecond)
	LogRequest(tl, "POST", "http://x", 502, time.Millisecond)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
	assert.True(t, strings.HasPrefix(tl.GetMessages()[2].Message, "HTTP request server"))
}
