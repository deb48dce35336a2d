package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// buildLogs runs build on the fixture atlas and returns everything logged.
func buildLogs(t *testing.T, level log.Level) string {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	config := atlasDir(t)

	var logs, out bytes.Buffer
	c := New(&logs, level)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"build", "-c", config, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("build: %v\n%s\n%s", err, out.String(), logs.String())
	}
	return logs.String()
}

func TestBuildLogs(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		want    []string
		notWant []string
	}{
		{
			name:    "info",
			level:   LogInfo,
			want:    []string{"Built atlas (", "built region catalog", "run="},
			notWant: []string{"layer=0"},
		},
		{
			name:  "debug",
			level: LogDebug,
			want:  []string{"Built atlas (", "orientation=A", "layer=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := buildLogs(t, tt.level)
			for _, s := range tt.want {
				if !strings.Contains(logs, s) {
					t.Errorf("logs missing %q:\n%s", s, logs)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(logs, s) {
					t.Errorf("logs contain %q:\n%s", s, logs)
				}
			}
		})
	}
}

func TestHierarchyCommand_LogsNodeCount(t *testing.T) {
	config := atlasDir(t)

	var logs, out bytes.Buffer
	root := New(&logs, LogDebug).RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"hierarchy", "-c", config})
	if err := root.Execute(); err != nil {
		t.Fatalf("hierarchy: %v\n%s", err, out.String())
	}
	// Sensory areas and Xs; the synthetic root is not counted.
	if !strings.Contains(logs.String(), "nodes=2") {
		t.Errorf("logs missing node count:\n%s", logs.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LogInfo)

	if got := loggerFromContext(withLogger(context.Background(), logger)); got != logger {
		t.Error("loggerFromContext did not return the attached logger")
	}
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext without a logger should fall back to log.Default")
	}
}
