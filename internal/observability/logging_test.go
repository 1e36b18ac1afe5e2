package observability

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")

	lc := GetContext(ctx)
	if lc.RunID != "run-123" {
		t.Errorf("expected run-123, got %s", lc.RunID)
	}
}

func TestWithStage(t *testing.T) {
	ctx := WithStage(context.Background(), "data")

	lc := GetContext(ctx)
	if lc.Stage != "data" {
		t.Errorf("expected data, got %s", lc.Stage)
	}
}

func TestContextLayering(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithStage(ctx, "data")
	ctx = WithGroup(ctx, "compile_sponza_model")

	lc := GetContext(ctx)
	assert.Equal(t, LogContext{RunID: "run-1", Stage: "data", Group: "compile_sponza_model"}, lc)
}

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithStage(WithRunID(context.Background(), "run-9"), "tools")
	LoggerFrom(ctx, base).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-9")
	assert.Contains(t, out, "stage=tools")
	assert.Contains(t, out, "msg=hello")
}

func TestLoggerFromEmptyContextReturnsBase(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, base, LoggerFrom(context.Background(), base))
}

func TestSetupLoggingMirrorsToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Logs")
	var console bytes.Buffer
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	sink, err := SetupLogging(LogOptions{
		Dir:     dir,
		Name:    "DataBuild",
		Level:   slog.LevelInfo,
		Console: &console,
		Now:     func() time.Time { return at },
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "DataBuild_20240305140709.log"), sink.Path)
	sink.Logger.Info("compiling", "asset", "sponza.obj")
	sink.Logger.Debug("hidden")
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(sink.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "asset=sponza.obj")
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.Equal(t, console.String(), string(data))
}

func TestSetupLoggingConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	sink, err := SetupLogging(LogOptions{Console: &console, Level: slog.LevelDebug})
	require.NoError(t, err)
	defer sink.Close()

	assert.Empty(t, sink.Path)
	sink.Logger.Debug("visible")
	assert.Contains(t, console.String(), "visible")
}
