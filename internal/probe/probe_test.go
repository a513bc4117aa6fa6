package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/3cpo-dev/doghouse/internal/config"
)

func TestRegistryUnknownKind(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New(config.ProbeConfig{Kind: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown probe kind")
	}
}

func TestFileProberTracksMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat")
	r := NewRegistry()
	p, err := r.New(config.ProbeConfig{Kind: "file", Path: path})
	if err != nil {
		t.Fatalf("new file probe: %v", err)
	}
	ctx := context.Background()

	// Missing file: no activity, no error.
	obs := p.Observe(ctx)
	if obs.Err != nil {
		t.Fatalf("observe missing file: %v", obs.Err)
	}
	if obs.Fed {
		t.Error("missing heartbeat file must not feed")
	}

	if err := os.WriteFile(path, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if obs := p.Observe(ctx); !obs.Fed {
		t.Error("fresh heartbeat file must feed")
	}

	// Unchanged mtime: no activity.
	if obs := p.Observe(ctx); obs.Fed {
		t.Error("unchanged heartbeat file must not feed again")
	}

	// Touch it forward.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if obs := p.Observe(ctx); !obs.Fed {
		t.Error("advanced mtime must feed")
	}
}

func TestExecProberExitStatus(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	ok, err := r.New(config.ProbeConfig{Kind: "exec", Command: "exit 0"})
	if err != nil {
		t.Fatalf("new exec probe: %v", err)
	}
	if obs := ok.Observe(ctx); !obs.Fed || obs.Err != nil {
		t.Errorf("exit 0: got fed=%v err=%v, want fed with no error", obs.Fed, obs.Err)
	}

	bad, err := r.New(config.ProbeConfig{Kind: "exec", Command: "exit 3"})
	if err != nil {
		t.Fatalf("new exec probe: %v", err)
	}
	if obs := bad.Observe(ctx); obs.Fed || obs.Err != nil {
		t.Errorf("exit 3: got fed=%v err=%v, want unfed with no error", obs.Fed, obs.Err)
	}
}

func TestProberValidation(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New(config.ProbeConfig{Kind: "file"}); err == nil {
		t.Error("file probe without a path must fail")
	}
	if _, err := r.New(config.ProbeConfig{Kind: "exec"}); err == nil {
		t.Error("exec probe without a command must fail")
	}
}
