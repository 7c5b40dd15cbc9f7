package logger

import (
	"testing"

	"github.com/rs/zerolog"

	"llmrelay/internal/platform/config"
)

func TestInit_Level(t *testing.T) {
	cases := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		Init(config.LoggingConfig{Level: tc.level, Format: "json"})
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Errorf("Level %q: expected %v, got %v", tc.level, tc.want, got)
		}
	}
}
