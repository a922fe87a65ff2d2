package cli

import (
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

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := "/tmp/custom-cache"
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	dir, err := dataDir()
	if err != nil {
		t.Fatalf("dataDir() error: %v", err)
	}
	if !strings.HasSuffix(dir, filepath.Join(".local", "share", appName, "models")) {
		t.Errorf("dataDir() = %q", dir)
	}

	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	dir, _ = dataDir()
	if want := filepath.Join("/tmp/data", appName, "models"); dir != want {
		t.Errorf("dataDir() with XDG_DATA_HOME = %q, want %q", dir, want)
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxIterations == 0 {
		t.Error("default config has no iteration limit")
	}

	path := filepath.Join(t.TempDir(), "policy.toml")
	if err := os.WriteFile(path, []byte("max_iterations = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxIterations != 3 {
		t.Errorf("MaxIterations = %d, want 3", cfg.MaxIterations)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing config")
	}
}
