package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
check_every: 5s
recovery: systemctl restart worker
history: /var/lib/doghouse/barks.db
status: 127.0.0.1:9090
dogs:
  - name: heartbeat
    timeout_s: 10.5
    probe:
      kind: file
      path: /run/worker/heartbeat
  - name: errors
    max_events: 3
    every: 30s
    probe:
      kind: exec
      command: check-worker-errors
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CheckEvery.Std() != 5*time.Second {
		t.Errorf("check_every = %v", cfg.CheckEvery)
	}
	if len(cfg.Dogs) != 2 {
		t.Fatalf("got %d dogs", len(cfg.Dogs))
	}
	hb := cfg.Dogs[0]
	if hb.Timeout() != 10500*time.Millisecond {
		t.Errorf("timeout = %v, want 10.5s", hb.Timeout())
	}
	if hb.Probe.Kind != "file" || hb.Probe.Path != "/run/worker/heartbeat" {
		t.Errorf("probe = %+v", hb.Probe)
	}
	errs := cfg.Dogs[1]
	if errs.MaxEvents == nil || *errs.MaxEvents != 3 {
		t.Errorf("max_events = %v", errs.MaxEvents)
	}
	if errs.Every.Std() != 30*time.Second {
		t.Errorf("every = %v", errs.Every)
	}
}

func TestLoadDefaultsCheckEvery(t *testing.T) {
	cfg, err := Load(writeConfig(t, "dogs: []\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CheckEvery.Std() != time.Second {
		t.Errorf("check_every = %v, want 1s default", cfg.CheckEvery)
	}
}

func TestValidateRejectsBadDogs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			"no policy",
			"dogs:\n  - name: x\n",
			"exactly one",
		},
		{
			"both policies",
			"dogs:\n  - name: x\n    timeout_s: 5\n    max_events: 3\n",
			"exactly one",
		},
		{
			"missing name",
			"dogs:\n  - timeout_s: 5\n",
			"name is required",
		},
		{
			"duplicate name",
			"dogs:\n  - name: x\n    timeout_s: 5\n  - name: x\n    max_events: 1\n",
			"declared twice",
		},
		{
			"negative budget",
			"dogs:\n  - name: x\n    max_events: -1\n",
			"must not be negative",
		},
		{
			"file probe without path",
			"dogs:\n  - name: x\n    timeout_s: 5\n    probe:\n      kind: file\n",
			"needs a path",
		},
		{
			"unknown probe kind",
			"dogs:\n  - name: x\n    timeout_s: 5\n    probe:\n      kind: pigeon\n",
			"unknown probe kind",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
