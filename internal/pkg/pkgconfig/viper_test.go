package pkgconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestViperConfigValues(t *testing.T) {
	path := writeConfigFile(t, "int: 42\nbool: true\nstring: hi\narray: a, b,,c\nlist:\n  - x\n  - y\nwait: 10m\n")

	cfg, err := NewViper(path)
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}
	defer func() {
		if err := cfg.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	if got := cfg.GetInt("int"); got != 42 {
		t.Fatalf("GetInt: expected 42, got %d", got)
	}
	if got := cfg.GetBool("bool"); got != true {
		t.Fatalf("GetBool: expected true, got %v", got)
	}
	if got := cfg.GetString("string"); got != "hi" {
		t.Fatalf("GetString: expected hi, got %q", got)
	}
	if got := cfg.GetDuration("wait"); got != 10*time.Minute {
		t.Fatalf("GetDuration: expected 10m, got %v", got)
	}
	if got := cfg.GetArray("array"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("GetArray: unexpected value: %#v", got)
	}
	if got := cfg.GetArray("list"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("GetArray sequence: unexpected value: %#v", got)
	}
	if got := cfg.GetArray("missing"); len(got) != 0 {
		t.Fatalf("GetArray missing: expected empty, got %#v", got)
	}
}

func TestViperDefaultsFillMissingKeys(t *testing.T) {
	path := writeConfigFile(t, "preview:\n  rows: 10\n")
	cfg, err := NewViper(path, WithDefaults(map[string]any{
		"preview.rows":        30,
		"server.address.http": ":5000",
	}))
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}

	if got := cfg.GetInt("preview.rows"); got != 10 {
		t.Fatalf("expected file value 10, got %d", got)
	}
	if got := cfg.GetString("server.address.http"); got != ":5000" {
		t.Fatalf("expected default :5000, got %q", got)
	}
}

func TestViperMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := NewViper(missing); err == nil {
		t.Fatal("expected error for missing required file")
	}

	cfg, err := NewViper(missing, WithOptionalFile(), WithDefaults(map[string]any{"janitor.interval": "10m"}))
	if err != nil {
		t.Fatalf("NewViper optional: %v", err)
	}
	if got := cfg.GetDuration("janitor.interval"); got != 10*time.Minute {
		t.Fatalf("expected default interval, got %v", got)
	}
}

func TestViperEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  driver: file\n")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := NewViper(path)
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}

	if got := cfg.GetString("storage.driver"); got != "memory" {
		t.Fatalf("expected env override, got %q", got)
	}
}
