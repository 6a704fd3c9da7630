package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONConfigSuccess(t *testing.T) {
	path := writeTempConfig(t, `{"in":"fleet.csv","hex":true,"workers":12,"workdir":"/tmp/scratch","spill":1048576,"outdir":"out","quiet":true}`)

	var cfg Config
	if err := parseJSONConfig(&cfg, path); err != nil {
		t.Fatalf("parseJSONConfig returned error: %v", err)
	}

	if cfg.In != "fleet.csv" || cfg.WorkDir != "/tmp/scratch" || cfg.OutDir != "out" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}

	if !cfg.Hex || !cfg.Quiet {
		t.Fatalf("expected boolean fields to be populated: %+v", cfg)
	}

	if cfg.Workers != 12 || cfg.Spill != 1048576 {
		t.Fatalf("unexpected numeric fields: %+v", cfg)
	}
}

func TestParseJSONConfigMissingFile(t *testing.T) {
	var cfg Config
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := parseJSONConfig(&cfg, missing); err == nil {
		t.Fatalf("parseJSONConfig expected error for missing file")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
