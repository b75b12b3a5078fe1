package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bluetide-io/bluetide/pkg/config"
	"github.com/bluetide-io/bluetide/pkg/deploy"
	"github.com/bluetide-io/bluetide/pkg/log"
	"github.com/bluetide-io/bluetide/pkg/term"
	"github.com/bluetide-io/bluetide/pkg/types"
)

// Driver fans deployments out across multiple targets. Attempts against
// different targets share no state, so parallel mode needs no locking
// beyond collecting results.
type Driver struct {
	deployer     *deploy.Deployer
	cfg          *config.Config
	logger       zerolog.Logger
	zeroDowntime bool
	parallel     bool
	markerDir    string
}

// Option configures a Driver
type Option func(*Driver)

// ZeroDowntime selects the blue-green strategy for every target
func ZeroDowntime() Option {
	return func(d *Driver) { d.zeroDowntime = true }
}

// Parallel runs one goroutine per target instead of a sequential loop
func Parallel() Option {
	return func(d *Driver) { d.parallel = true }
}

// WithMarkerDir overrides where per-target failure markers are written
func WithMarkerDir(dir string) Option {
	return func(d *Driver) { d.markerDir = dir }
}

// New creates a batch driver
func New(deployer *deploy.Deployer, cfg *config.Config, opts ...Option) *Driver {
	d := &Driver{
		deployer:  deployer,
		cfg:       cfg,
		logger:    log.WithComponent("batch"),
		markerDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Summary aggregates the per-target outcomes of one batch run
type Summary struct {
	Succeeded int
	Failed    int
	Attempts  []types.Attempt
}

// Run deploys the named targets (all configured targets when names is
// empty) with the requested tag. Duplicate names are collapsed so a single
// invocation never races itself on one target.
func (d *Driver) Run(ctx context.Context, names []string, tag string) (Summary, error) {
	if len(names) == 0 {
		names = d.cfg.TargetNames()
	}
	names = dedupe(names)

	// Resolve everything up front: a typo in one target name should fail
	// the batch before any host is touched.
	targets := make([]types.Target, 0, len(names))
	for _, name := range names {
		t, err := d.cfg.Resolve(name)
		if err != nil {
			return Summary{}, err
		}
		targets = append(targets, t)
	}

	attempts := make([]types.Attempt, len(targets))
	if d.parallel {
		var wg sync.WaitGroup
		for i, t := range targets {
			wg.Add(1)
			go func(i int, t types.Target) {
				defer wg.Done()
				attempts[i] = d.runOne(ctx, t, tag)
			}(i, t)
		}
		wg.Wait()
	} else {
		for i, t := range targets {
			attempts[i] = d.runOne(ctx, t, tag)
		}
	}

	summary := Summary{Attempts: attempts}
	for _, a := range attempts {
		if a.Failed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		d.writeMarker(a)
	}

	d.report(summary)
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d targets failed", summary.Failed, len(attempts))
	}
	return summary, nil
}

func (d *Driver) runOne(ctx context.Context, t types.Target, tag string) types.Attempt {
	d.logger.Info().Str("target", t.Name).Str("tag", tag).Bool("zero_downtime", d.zeroDowntime).Msg("deploying")

	var attempt types.Attempt
	if d.zeroDowntime {
		attempt, _ = d.deployer.BlueGreen(ctx, t, tag)
	} else {
		attempt, _ = d.deployer.Direct(ctx, t, tag)
	}
	return attempt
}

// writeMarker persists a failure marker for inspection and removes any
// stale marker on success.
func (d *Driver) writeMarker(a types.Attempt) {
	marker := filepath.Join(d.markerDir, "bluetide-"+a.Target+".failed")
	if !a.Failed() {
		_ = os.Remove(marker)
		return
	}
	body := fmt.Sprintf("target: %s\ntag: %s\noutcome: %s\nerror: %v\nduration: %s\n",
		a.Target, a.Tag, a.Outcome, a.Err, a.Duration)
	if err := os.WriteFile(marker, []byte(body), 0o644); err != nil {
		d.logger.Warn().Err(err).Str("target", a.Target).Msg("failed to write failure marker")
	}
}

func (d *Driver) report(s Summary) {
	term.Plain("")
	for _, a := range s.Attempts {
		if a.Failed() {
			term.Failure("%s (%s): %v", a.Target, a.Outcome, a.Err)
		} else {
			term.Success("%s (%s in %s)", a.Target, a.Tag, a.Duration.Round(time.Millisecond))
		}
	}
	term.Plain("%d succeeded, %d failed", s.Succeeded, s.Failed)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
