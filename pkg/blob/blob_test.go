package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_PutGetExists(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Exists(ctx, "coronal/svgs/00.svg")
			if err != nil || ok {
				t.Fatalf("Exists before Put = %v, %v; want false, nil", ok, err)
			}

			if err := s.Put(ctx, "coronal/svgs/00.svg", strings.NewReader("<svg/>"), PutOptions{}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			ok, err = s.Exists(ctx, "coronal/svgs/00.svg")
			if err != nil || !ok {
				t.Fatalf("Exists after Put = %v, %v; want true, nil", ok, err)
			}

			data, err := ReadAll(ctx, s, "coronal/svgs/00.svg")
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(data) != "<svg/>" {
				t.Errorf("ReadAll = %q, want %q", data, "<svg/>")
			}

			// Put overwrites.
			if err := s.Put(ctx, "coronal/svgs/00.svg", strings.NewReader("<svg></svg>"), PutOptions{}); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			data, _ = ReadAll(ctx, s, "coronal/svgs/00.svg")
			if string(data) != "<svg></svg>" {
				t.Errorf("after overwrite = %q", data)
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "sagittal/parts/HYl/07.jpg")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"a/svgs/01.svg", "a/svgs/00.svg", "b/svgs/00.svg"} {
				if err := s.Put(ctx, k, strings.NewReader("x"), PutOptions{}); err != nil {
					t.Fatalf("Put %s: %v", k, err)
				}
			}
			got, err := s.List(ctx, "a/")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{"a/svgs/00.svg", "a/svgs/01.svg"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("List mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../b"} {
				if err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
					t.Errorf("Put(%q) should fail", key)
				}
			}
		})
	}
}

func TestFileStore_CreatesDirectories(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(context.Background(), "horizontal/svgs/12.svg", strings.NewReader("x"), PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "horizontal", "svgs", "12.svg")); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "horizontal", "svgs"))
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("Open fs: %v", err)
	}
	if s.Driver() != DriverFilesystem {
		t.Errorf("Driver = %v, want fs", s.Driver())
	}
	s, err = Open(ctx, Config{Driver: DriverMemory})
	if err != nil || s.Driver() != DriverMemory {
		t.Errorf("Open memory = %v, %v", s, err)
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Error("unknown driver should fail")
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Error("s3 without bucket should fail")
	}
}
