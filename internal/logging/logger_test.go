package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_BuildsLoggerWithoutPanicking(t *testing.T) {
	logger := New(Config{Level: "debug", Format: "json", Output: "stdout"})
	require.NotNil(t, logger)

	logger = New(Config{Level: "info", Format: "text", Output: "stderr"})
	require.NotNil(t, logger)
}
