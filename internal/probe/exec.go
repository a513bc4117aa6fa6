package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/3cpo-dev/doghouse/internal/config"
)

// execProber runs a command and treats exit status 0 as a sign of life.
type execProber struct {
	command string
}

func newExecProber(cfg config.ProbeConfig) (Prober, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("exec probe: command is required")
	}
	return &execProber{command: cfg.Command}, nil
}

func (p *execProber) Describe() string { return "exec " + p.command }

func (p *execProber) Observe(ctx context.Context) Observation {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.command)
	err := cmd.Run()
	if err == nil {
		return Observation{Fed: true}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The command ran and said the activity is unhealthy.
		return Observation{}
	}
	return Observation{Err: fmt.Errorf("run probe command: %w", err)}
}
