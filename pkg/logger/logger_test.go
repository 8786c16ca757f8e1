package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawl/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "crawl.log")}, false},
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

func TestFileOutputWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.log")
	l, err := New(&config.LoggingConfig{Level: "debug", File: path})
	require.NoError(t, err)

	l.WithField("account_id", "100").Info("Pulling account")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"account_id":"100"`), line)
	assert.True(t, strings.Contains(line, `"app":"igcrawl"`), line)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestTestLoggerCapturesFields(t *testing.T) {
	tl := NewTestLogger()
	boom := errors.New("boom")

	tl.WithField("account_id", "500").WithError(boom).WarnWithFields("Account is private, skipping", map[string]interface{}{"step": "profile"})
	tl.Info("done")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "WARN", msgs[0].Level)
	assert.Equal(t, "500", msgs[0].Fields["account_id"])
	assert.Equal(t, "profile", msgs[0].Fields["step"])
	assert.Equal(t, boom, msgs[0].Error)
	assert.True(t, tl.HasMessage("done"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogPrivateSkip(tl, "500", "media")
	LogQuota(tl, 10)
	LogConflict(tl, "edge", "100/200")

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 2)
	assert.Equal(t, "skipped_private", warns[0].Fields["action"])
	assert.Equal(t, 10, warns[1].Fields["remaining_quota"])
	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	t.Cleanup(func() { SetLogger(nil) })

	WithField("k", "v").Info("global")
	assert.True(t, tl.HasMessage("global"))
	assert.Equal(t, Logger(tl), GetLogger())
}
