package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	// Verify the expected structure: $HOME/.cache/histatlas
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "histatlas")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", root)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(root, "histatlas"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheCommands(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", root)
	dir := filepath.Join(root, "histatlas")

	for _, rel := range []string{"ab/abcdef.json", "cd/cdef01.json"} {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("path", func(t *testing.T) {
		out, err := runCommand(t, "cache", "path")
		if err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(out) != dir {
			t.Errorf("cache path = %q, want %q", out, dir)
		}
	})

	t.Run("clear", func(t *testing.T) {
		out, err := runCommand(t, "cache", "clear")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Cleared 2 cached entries") {
			t.Errorf("cache clear output = %q", out)
		}
		if n := countEntries(dir); n != 0 {
			t.Errorf("%d entries left after clear", n)
		}
	})
}

func TestCacheClearMissingDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"cache", "clear"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Cache is empty") {
		t.Errorf("output = %q", buf.String())
	}
}
