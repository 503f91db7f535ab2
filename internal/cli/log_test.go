package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("x") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("x") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("x") }, true},
		{"warn at warn", log.WarnLevel, func(l *log.Logger) { l.Warn("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Loaded 9 packages")
	if !strings.Contains(buf.String(), "Loaded 9 packages (") {
		t.Errorf("progress output = %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("expected the default logger without one in the context")
	}

	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	if loggerFromContext(withLogger(context.Background(), l)) != l {
		t.Error("expected the logger stored in the context")
	}
}

func TestVerboseFlag(t *testing.T) {
	e := newEnv(t)

	_, stderr, err := e.run("list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(stderr, "DEBU") {
		t.Errorf("debug output without -v:\n%s", stderr)
	}

	_, stderr, err = e.run("-v", "select", cgid, "--choose", worker, "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "selection updated") {
		t.Errorf("no debug output with -v:\n%s", stderr)
	}
}

func TestSetVersion(t *testing.T) {
	defer SetVersion(version, commit, date)

	SetVersion("1.2.0", "abc123", "2026-10-01")
	if version != "1.2.0" || commit != "abc123" || date != "2026-10-01" {
		t.Errorf("version info = %s %s %s", version, commit, date)
	}
}
