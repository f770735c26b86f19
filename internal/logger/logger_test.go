package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		level string
		want  zerolog.Level
	}{
		{name: "development default", env: "development", want: zerolog.DebugLevel},
		{name: "production default", env: "production", want: zerolog.InfoLevel},
		{name: "test default", env: "test", want: zerolog.WarnLevel},
		{name: "override", env: "production", level: "error", want: zerolog.ErrorLevel},
		{name: "bad override falls back", env: "production", level: "loud", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, levelFor(tt.env, tt.level))
		})
	}
}

func TestConsoleWriter_NoColor(t *testing.T) {
	w := consoleWriter(noColors)
	assert.True(t, w.NoColor)
	assert.Equal(t, "failed", w.FormatFieldValue("failed"))
	assert.Equal(t, "404", w.FormatFieldValue("404"))
}

func TestConsoleWriter_Colors(t *testing.T) {
	w := consoleWriter(colors)
	assert.False(t, w.NoColor)
	assert.Equal(t, colors.Red+"500"+colors.Reset, w.FormatFieldValue("500"))
	assert.Equal(t, colors.Green+"succeeded"+colors.Reset, w.FormatFieldValue("succeeded"))
	assert.Equal(t, "8000", w.FormatFieldValue("8000"))
}

func TestIsStatusCode(t *testing.T) {
	for _, s := range []string{"200", "302", "410", "599"} {
		assert.True(t, isStatusCode(s), s)
	}
	for _, s := range []string{"199", "600", "20", "2000", "4x4", ""} {
		assert.False(t, isStatusCode(s), s)
	}
}
