package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "a.cc")
		if err := os.WriteFile(file, []byte("int x;\n"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		got, err := Normalize(file)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if !strings.HasSuffix(got, "/a.cc") {
			t.Errorf("Expected forward-slash path ending in /a.cc, got %s", got)
		}
		if strings.Contains(got, "\\") {
			t.Errorf("Expected no backslashes, got %s", got)
		}
	})

	t.Run("nonexistent file normalizes structurally", func(t *testing.T) {
		dir := t.TempDir()
		got, err := Normalize(filepath.Join(dir, "sub", "..", "b.cc"))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if strings.Contains(got, "..") {
			t.Errorf("Expected cleaned path, got %s", got)
		}
		if !strings.HasSuffix(got, "/b.cc") {
			t.Errorf("Expected path ending in /b.cc, got %s", got)
		}
	})

	t.Run("symlink resolves to target", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "real.h")
		if err := os.WriteFile(target, []byte("#pragma once\n"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		link := filepath.Join(dir, "link.h")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}

		gotLink, err := Normalize(link)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		gotTarget, err := Normalize(target)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if gotLink != gotTarget {
			t.Errorf("Expected symlink to normalize to target: %s != %s", gotLink, gotTarget)
		}
	})

	t.Run("same file keys identically", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "c.cc")
		if err := os.WriteFile(file, []byte(""), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		a, err := Normalize(file)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		b, err := Normalize(filepath.Join(dir, ".", "c.cc"))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if a != b {
			t.Errorf("Expected identical keys, got %s and %s", a, b)
		}
	})
}

func TestNormalizeFallback(t *testing.T) {
	got := NormalizeFallback("src/../main.cc")
	if strings.Contains(got, "..") {
		t.Errorf("Expected cleaned path, got %s", got)
	}
}

func TestEscapeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unix path", "/usr/include/vector", "@usr@include@vector"},
		{"windows path", "C:\\src\\main.cc", "C@@src@main.cc"},
		{"relative", "a/b.h", "a@b.h"},
		{"no separators", "main.cc", "main.cc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeFileName(tt.in); got != tt.want {
				t.Errorf("EscapeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCachePath(t *testing.T) {
	got := CachePath("/cache", "/src/main.cc", "json.zst")
	want := filepath.Join("/cache", "@src@main.cc.json.zst")
	if got != want {
		t.Errorf("CachePath = %q, want %q", got, want)
	}

	// Distinct sources never collide on the same cache file.
	other := CachePath("/cache", "/src/main_cc", "json.zst")
	if got == other {
		t.Errorf("Expected distinct cache paths, both were %q", got)
	}
}

func TestIsAbsolute(t *testing.T) {
	if !IsAbsolute("/usr/include/vector") {
		t.Error("Expected forward-slash absolute path to be absolute")
	}
	if IsAbsolute("src/main.cc") {
		t.Error("Expected relative path to not be absolute")
	}
}
