package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("file", "a.csv").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"file":"a.csv"`)
	assert.Contains(t, out, `"message":"shown"`)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "console", Output: &buf, NoColor: true})

	logger.Info().Str("file", "a.csv").Msg("Reading input file")

	out := buf.String()
	assert.Contains(t, out, "Reading input file")
	assert.Contains(t, out, "file=a.csv")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestAutoFormatNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	logger.Info().Msg("x")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}
