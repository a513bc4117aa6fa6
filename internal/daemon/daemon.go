// Package daemon runs the supervision loop: it owns the ticker the
// doghouse core deliberately leaves to its caller, drives probes,
// sweeps the house, journals barks and executes the recovery command.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/3cpo-dev/doghouse/internal/config"
	"github.com/3cpo-dev/doghouse/internal/history"
	"github.com/3cpo-dev/doghouse/internal/probe"
	"github.com/3cpo-dev/doghouse/internal/status"
	"github.com/3cpo-dev/doghouse/pkg/doghouse"
)

// binding ties one adopted dog to its probe schedule.
type binding struct {
	dog    doghouse.Watchdog
	prober probe.Prober
	every  time.Duration
	next   time.Time
}

// Daemon supervises the dogs declared in one configuration.
type Daemon struct {
	cfg      config.Config
	log      zerolog.Logger
	baseLog  zerolog.Logger
	house    *doghouse.House
	journal  *history.Store
	bindings []binding
}

// New builds a Daemon from its configuration. probers supplies the
// probe kinds; pass probe.NewRegistry() for the built-ins.
func New(cfg config.Config, probers *probe.Registry, log zerolog.Logger) (*Daemon, error) {
	d := &Daemon{
		cfg:     cfg,
		log:     log.With().Str("component", "daemon").Logger(),
		baseLog: log,
	}

	var recoverFn doghouse.RecoverFunc
	if cfg.Recovery != "" {
		recoverFn = d.runRecovery
	}
	d.house = doghouse.NewHouse(recoverFn, doghouse.WithLogger(log))

	if cfg.History != "" {
		journal, err := history.Open(cfg.History)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.journal = journal
	}

	for _, dc := range cfg.Dogs {
		var opt doghouse.AdoptOption
		if dc.TimeoutS != nil {
			opt = doghouse.WithTimeout(dc.Timeout())
		} else {
			opt = doghouse.WithMaxEvents(*dc.MaxEvents)
		}
		dog, err := d.house.Adopt(dc.Name, opt)
		if err != nil {
			return nil, fmt.Errorf("adopt %s: %w", dc.Name, err)
		}
		if dc.Probe.Kind == "" {
			continue
		}
		p, err := probers.New(dc.Probe)
		if err != nil {
			return nil, fmt.Errorf("dog %s: %w", dc.Name, err)
		}
		every := dc.Every.Std()
		if every <= 0 {
			every = cfg.CheckEvery.Std()
		}
		d.bindings = append(d.bindings, binding{dog: dog, prober: p, every: every})
	}
	return d, nil
}

// House exposes the daemon's registry, e.g. for the status endpoint.
func (d *Daemon) House() *doghouse.House { return d.house }

// Close releases the daemon's resources.
func (d *Daemon) Close() error {
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Run activates every dog and sweeps until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.activate()

	var statusSrv *status.Server
	if d.cfg.Status != "" {
		statusSrv = status.NewServer(d.cfg.Status, d.house, d.baseLog)
		go func() {
			if err := statusSrv.Start(); err != nil {
				d.log.Error().Err(err).Msg("status endpoint failed")
			}
		}()
	}

	d.log.Info().
		Int("dogs", d.house.Len()).
		Dur("check_every", d.cfg.CheckEvery.Std()).
		Msg("supervision started")

	ticker := time.NewTicker(d.cfg.CheckEvery.Std())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if statusSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = statusSrv.Shutdown(shutdownCtx)
			}
			d.log.Info().Msg("supervision stopped")
			return ctx.Err()
		case now := <-ticker.C:
			d.observeDue(ctx, now)
			d.sweep(ctx)
		}
	}
}

// CheckOnce runs every probe and a single sweep, returning the barking
// dog if any. Used by the one-shot check command.
func (d *Daemon) CheckOnce(ctx context.Context) doghouse.Watchdog {
	d.activate()
	for i := range d.bindings {
		d.observe(ctx, &d.bindings[i])
	}
	return d.sweep(ctx)
}

func (d *Daemon) activate() {
	d.house.Range(func(name string, dog doghouse.Watchdog) bool {
		if !dog.Active() {
			dog.Activate()
		}
		return true
	})
}

func (d *Daemon) observeDue(ctx context.Context, now time.Time) {
	for i := range d.bindings {
		b := &d.bindings[i]
		if now.Before(b.next) {
			continue
		}
		b.next = now.Add(b.every)
		d.observe(ctx, b)
	}
}

func (d *Daemon) observe(ctx context.Context, b *binding) {
	obs := b.prober.Observe(ctx)
	if obs.Err != nil {
		d.log.Warn().Err(obs.Err).Str("dog", b.dog.Name()).Str("probe", b.prober.Describe()).Msg("probe failed")
		return
	}
	if obs.Fed {
		b.dog.Feed()
	} else {
		b.dog.Starve()
	}
}

func (d *Daemon) sweep(ctx context.Context) doghouse.Watchdog {
	barking := d.house.Check()
	if barking == nil {
		return nil
	}
	if d.journal != nil {
		err := d.journal.RecordBark(ctx, barking.Name(), status.KindOf(barking), d.cfg.Recovery != "", time.Now())
		if err != nil {
			d.log.Warn().Err(err).Msg("journal bark")
		}
	}
	return barking
}

// runRecovery executes the configured recovery command with the
// starved dog's name in DOGHOUSE_DOG.
func (d *Daemon) runRecovery(dog doghouse.Watchdog) {
	cmd := exec.Command("sh", "-c", d.cfg.Recovery)
	cmd.Env = append(os.Environ(), "DOGHOUSE_DOG="+dog.Name())
	out, err := cmd.CombinedOutput()
	if err != nil {
		d.log.Error().Err(err).Str("dog", dog.Name()).Bytes("output", out).Msg("recovery command failed")
		return
	}
	d.log.Info().Str("dog", dog.Name()).Msg("recovery command ran")
}
