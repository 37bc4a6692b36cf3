package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogTimestamp, "nope")

	cfg := FromEnv(DefaultConfig())
	if cfg.Level != zerolog.DebugLevel {
		t.Errorf("Level = %v, want debug", cfg.Level)
	}
	if !cfg.NoColor {
		t.Error("NoColor should be set")
	}
	if !cfg.Timestamp {
		t.Error("unparseable timestamp value should keep the default")
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New("arenas", &buf, Config{Level: zerolog.WarnLevel, NoColor: true})
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "app=arenas") {
		t.Errorf("unexpected output %q", out)
	}
}
