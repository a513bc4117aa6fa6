// Package probe turns observed activity into feed/starve signals for a
// watchdog.
package probe

import (
	"context"
	"fmt"

	"github.com/3cpo-dev/doghouse/internal/config"
)

// Observation is the outcome of a single probe run.
type Observation struct {
	// Fed reports whether the monitored activity showed signs of life.
	Fed bool
	// Err carries probe machinery failures (not monitored-activity
	// failures, which are reported through Fed=false).
	Err error
}

// Prober observes one activity source.
type Prober interface {
	// Describe returns a short human-readable description of the source.
	Describe() string
	// Observe runs one probe. It must be safe to call repeatedly.
	Observe(ctx context.Context) Observation
}

// Factory builds a Prober from its configuration.
type Factory func(cfg config.ProbeConfig) (Prober, error)

// Registry maps probe kinds to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in kinds registered.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("file", newFileProber)
	r.Register("exec", newExecProber)
	return r
}

func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// New builds a prober for the given configuration.
func (r *Registry) New(cfg config.ProbeConfig) (Prober, error) {
	f, ok := r.factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("probe kind not registered: %s", cfg.Kind)
	}
	return f(cfg)
}
