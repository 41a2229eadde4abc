// Package runner sequences collection across work units and the final
// merge pass.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qnews/internal/collector"
	"qnews/internal/config"
	"qnews/internal/logger"
	"qnews/internal/merge"
	"qnews/internal/models"
)

// Run modes recorded in the run state.
const (
	ModeAuto   = "auto"
	ModeAll    = "all"
	ModeSingle = "single"
	ModeMerge  = "merge"
)

// StateFilename is where the run record lands inside the merged directory.
const StateFilename = "run_state.json"

// interUnitFactor scales the per-call delay into the pause between units,
// leaving headroom under the provider's per-second ceiling.
const interUnitFactor = 5

// Runner drives collection over work units, then merging.
type Runner struct {
	collector *collector.Collector
	merger    *merge.Engine
	cfg       *config.Config
	logger    *logger.Logger
}

// New creates a runner.
func New(c *collector.Collector, m *merge.Engine, cfg *config.Config, log *logger.Logger) *Runner {
	return &Runner{collector: c, merger: m, cfg: cfg, logger: log}
}

// RunAll collects every unit in order, then merges. A fatal error aborts
// the remaining units and skips the merge; outcomes recorded up to that
// point stay in the returned state.
func (r *Runner) RunAll(ctx context.Context, units []models.WorkUnit) (*models.RunState, *merge.Stats, error) {
	state := models.NewRunState(ModeAuto)

	if err := r.collectAll(ctx, state, units); err != nil {
		state.Finish()

		return state, nil, err
	}

	stats, err := r.merger.Merge(units)
	state.Finish()

	if err != nil {
		return state, nil, err
	}

	return state, stats, nil
}

// RunCollect collects every unit without merging.
func (r *Runner) RunCollect(ctx context.Context, units []models.WorkUnit) (*models.RunState, error) {
	state := models.NewRunState(ModeAll)
	err := r.collectAll(ctx, state, units)
	state.Finish()

	return state, err
}

// RunUnit collects exactly one externally supplied unit, without merging.
// Parallel invocations over disjoint units are safe because each touches
// only its own partition file.
func (r *Runner) RunUnit(ctx context.Context, unit models.WorkUnit) (*models.RunState, error) {
	state := models.NewRunState(ModeSingle)

	outcome, err := r.collector.Collect(ctx, unit)
	state.Record(outcome)
	state.Finish()

	return state, err
}

// RunMerge rebuilds the consolidated dataset from whatever partition files
// exist. The unit list defines the deterministic read order.
func (r *Runner) RunMerge(units []models.WorkUnit) (*merge.Stats, error) {
	return r.merger.Merge(units)
}

// SaveState writes the run record beside the merged dataset so callers can
// identify and re-run failed units.
func (r *Runner) SaveState(state *models.RunState) (string, error) {
	if err := os.MkdirAll(r.cfg.Output.MergedDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create merged directory: %w", err)
	}

	path := filepath.Join(r.cfg.Output.MergedDir, StateFilename)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode run state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run state: %w", err)
	}

	return path, nil
}

// collectAll runs the units sequentially with inter-unit pacing. Unit-level
// failures are recorded and the loop moves on; only fatal conditions abort.
func (r *Runner) collectAll(ctx context.Context, state *models.RunState, units []models.WorkUnit) error {
	r.logger.Info(fmt.Sprintf("Starting collection of %d units", len(units)))

	for i, unit := range units {
		r.logger.Info(fmt.Sprintf("[%d/%d] %s", i+1, len(units), unit))

		outcome, err := r.collector.Collect(ctx, unit)
		state.Record(outcome)

		if err != nil {
			return fmt.Errorf("run aborted at %s: %w", unit.ID(), err)
		}

		if i < len(units)-1 {
			if err := pause(ctx, r.cfg.Collection.CallDelay()*interUnitFactor); err != nil {
				return err
			}
		}
	}

	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
