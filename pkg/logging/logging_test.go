package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/chazu/chisel/pkg/logging"
)

func TestDefaultIsSilent(t *testing.T) {
	logging.SetLogger(nil)
	if logging.Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled at every level")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer logging.SetLogger(nil)

	logging.Logger().Debug("stage done", "points", 3)
	if !strings.Contains(buf.String(), "points=3") {
		t.Errorf("log output = %q", buf.String())
	}
}
