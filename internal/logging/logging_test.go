package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewWithWriterFormats(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter("json", "info", &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("generated", "backend", "compose")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"backend":"compose"`)

	_, err = NewWithWriter("xml", "info", &buf)
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter("text", "debug", &buf)
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Debug("from context")
	assert.Contains(t, buf.String(), "from context")

	// absent logger discards instead of failing
	FromContext(context.Background()).Info("dropped")
}
