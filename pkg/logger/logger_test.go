package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bskyfollow/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "chatty"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}},
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
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"INFO":     zerolog.InfoLevel,
		"":         zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range tests {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLogLevel("verbose")
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")
	l.Error("also shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "shown", entries[0]["message"])
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "bskyfollow", entries[0]["app"])
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	child := l.WithField("run_id", "abc").WithFields(map[string]interface{}{"handle": "alice.bsky.social"})
	child.Info("child")
	l.Info("parent")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["run_id"])
	assert.Equal(t, "alice.bsky.social", entries[0]["handle"])
	assert.NotContains(t, entries[1], "run_id")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	assert.Same(t, l, l.WithError(nil))
	l.WithError(errors.New("boom")).Error("failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["error"])
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	l.InfoWithFields("types", map[string]interface{}{
		"str":   "x",
		"int":   3,
		"bool":  true,
		"float": 1.5,
		"dur":   2 * time.Second,
		"list":  []string{"a", "b"},
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "x", e["str"])
	assert.Equal(t, float64(3), e["int"])
	assert.Equal(t, true, e["bool"])
	assert.Equal(t, 1.5, e["float"])
	assert.Equal(t, float64(2000), e["dur"])
	assert.Equal(t, []interface{}{"a", "b"}, e["list"])
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	defer func() { globalLogger = prev }()

	tl := NewTestLogger()
	SetLogger(tl)
	WithField("k", "v").Info("via global")

	assert.True(t, tl.HasMessage("via global"))
	assert.Equal(t, "v", tl.GetMessages()[0].Fields["k"])
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "POST", "com.atproto.repo.createRecord", 200, 15*time.Millisecond)
	LogRequest(tl, "GET", "app.bsky.graph.getFollows", 429, time.Millisecond)
	LogRequest(tl, "GET", "app.bsky.graph.getFollows", 502, time.Millisecond)
	LogRateLimit(tl, "unfollow", "minute", 30*time.Second)
	LogRunResult(tl, "run-1", "follow", 3, 1, time.Minute, false)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
	assert.True(t, tl.HasError())

	var result LogMessage
	for _, m := range tl.GetMessages() {
		if m.Message == "Bulk run finished" {
			result = m
		}
	}
	assert.Equal(t, 3, result.Fields["successful"])
	assert.Equal(t, "run-1", result.Fields["run_id"])
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("component", "bulk").Warn("from child")
	tl.Clear()
	tl.Info("after clear")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "after clear", msgs[0].Message)
	assert.Contains(t, tl.String(), "[INFO] after clear")
}
