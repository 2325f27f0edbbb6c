package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"console", &Config{Level: "debug", Format: "console", Output: "stdout", TimeFormat: "15:04:05"}},
		{"json", &Config{Level: "info", Format: "json", Output: "stderr", TimeFormat: "2006-01-02"}},
		{"defaults", DefaultConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, log)
			log.Info("probe")
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levelFor(tt.in), tt.in)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path, TimeFormat: "2006-01-02"})
	require.NoError(t, err)

	log.Info("written to file")
	require.NoError(t, Sync(log))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestUnopenableFileFallsBackToStdout(t *testing.T) {
	log, err := New(&Config{Level: "info", Format: "json", Output: "/nonexistent-dir/app.log", TimeFormat: "2006-01-02"})
	require.NoError(t, err)
	log.Info("still alive")
}
