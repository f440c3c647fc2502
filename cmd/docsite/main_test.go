package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsite/internal/config"
)

func TestApplyFlags_OverridesConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Output = "from-config"
	cfg.Workers = 8

	cli := &CLI{Output: "from-flag", MissingParser: "fail", Workers: -1, Verbose: true}
	cli.applyFlags(&cfg)

	require.Equal(t, "from-flag", cfg.Output)
	require.Equal(t, "src/pages", cfg.Source, "unset flags leave config alone")
	require.Equal(t, config.MissingParserFail, cfg.MissingParser)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, "debug", cfg.LogLevel)

	cli.Workers = 0
	cli.applyFlags(&cfg)
	require.Equal(t, 0, cfg.Workers)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", "json")
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	log = newLogger(&buf, "bogus", "text")
	require.True(t, log.Enabled(context.Background(), slog.LevelInfo))
	require.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}
