package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_YAMLAndJSONAgree(t *testing.T) {
	yamlDoc := `
license: KEY
templates: /etc/capturevision/templates.json
engine:
  kind: stub
  timeout: 2s
throttle:
  rate: 5
  burst: 2
journal:
  path: /var/lib/capturevision/journal.db
log:
  level: debug
  format: json
`
	jsonDoc := `{
		"license": "KEY",
		"templates": "/etc/capturevision/templates.json",
		"engine": {"kind": "stub", "timeout": "2s"},
		"throttle": {"rate": 5, "burst": 2},
		"journal": {"path": "/var/lib/capturevision/journal.db"},
		"log": {"level": "debug", "format": "json"}
	}`
	want := &Config{
		License:   "KEY",
		Templates: "/etc/capturevision/templates.json",
		Builtin:   "default",
		Engine:    EngineConfig{Kind: EngineStub, Timeout: Duration(2 * time.Second)},
		Throttle:  ThrottleConfig{Rate: 5, Burst: 2},
		Journal:   JournalConfig{Path: "/var/lib/capturevision/journal.db"},
		Log:       LogConfig{Level: "debug", Format: "json"},
	}

	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"yaml by extension", yamlDoc, ".yml"},
		{"json by extension", jsonDoc, ".json"},
		{"json sniffed", jsonDoc, ""},
		{"yaml sniffed", yamlDoc, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load([]byte(tt.data), tt.ext)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_KeepsDefaultsForMissingFields(t *testing.T) {
	got, err := Load([]byte("license: K\n"), ".yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.License = "K"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, data, want string
	}{
		{"engine kind", "engine:\n  kind: quantum\n", "unknown engine kind"},
		{"timeout", "engine:\n  timeout: soon\n", "invalid duration"},
		{"negative throttle", "throttle:\n  rate: -1\n", "throttle"},
		{"log level", "log:\n  level: loud\n", "unknown log level"},
		{"log format", "log:\n  format: xml\n", "unknown log format"},
		{"bad json", `{"license": }`, "parse config json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capturevision.yaml")
	if err := os.WriteFile(path, []byte("journal:\n  path: j.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Journal.Path != "j.db" {
		t.Errorf("journal path = %q", cfg.Journal.Path)
	}
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvLicense: "FROM-ENV", EnvTemplates: ""}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	cfg.Templates = "file.json"
	cfg.ApplyEnv(lookup)
	if cfg.License != "FROM-ENV" {
		t.Errorf("License = %q", cfg.License)
	}
	if cfg.Templates != "file.json" {
		t.Errorf("empty env value overrode Templates: %q", cfg.Templates)
	}
}
