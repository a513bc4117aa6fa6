package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/3cpo-dev/doghouse/internal/config"
)

// fileProber watches a heartbeat file: the monitored process touches it
// while alive, and the probe reports activity whenever the mtime has
// advanced since the previous observation.
type fileProber struct {
	path string
	seen time.Time
}

func newFileProber(cfg config.ProbeConfig) (Prober, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file probe: path is required")
	}
	return &fileProber{path: cfg.Path}, nil
}

func (p *fileProber) Describe() string { return "file " + p.path }

func (p *fileProber) Observe(ctx context.Context) Observation {
	info, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Not created yet, or removed: no activity.
			return Observation{}
		}
		return Observation{Err: fmt.Errorf("stat %s: %w", p.path, err)}
	}
	mtime := info.ModTime()
	if mtime.After(p.seen) {
		p.seen = mtime
		return Observation{Fed: true}
	}
	return Observation{}
}
