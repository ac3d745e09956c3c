package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRun_ExitCodes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "riskboard.db")
	withDB := writeConfig(t, "database:\n  enabled: true\n  path: "+dbPath+"\n")

	tests := []struct {
		name string
		args []string
		want int
		msg  string
	}{
		{name: "unknown flag", args: []string{"-nope"}, want: 2},
		{name: "missing config", args: []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, want: 2, msg: "加载配置失败"},
		{name: "bad format", args: []string{"-config", withDB, "-format", "xml"}, want: 2, msg: "report.format"},
		{name: "no symbols", args: []string{"-config", withDB}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := run(tt.args, &stderr); got != tt.want {
				t.Fatalf("run(%v) = %d, want %d (stderr=%s)", tt.args, got, tt.want, stderr.String())
			}
			if tt.msg != "" && !strings.Contains(stderr.String(), tt.msg) {
				t.Fatalf("stderr missing %q: %s", tt.msg, stderr.String())
			}
		})
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected the database to have been opened: %v", err)
	}
}
