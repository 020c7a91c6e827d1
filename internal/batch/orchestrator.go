package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fleetdeck/fleetdeck/internal/common"
	"github.com/fleetdeck/fleetdeck/internal/model"
)

// Action executes the bulk action for one candidate. A nil return means
// success. Any side effect that must stay consistent with the results map
// (such as the silent selection-store insert after a claim) belongs inside
// the action, before it returns.
type Action func(ctx context.Context, c model.Candidate) error

// outcome is one settled item within a group.
type outcome struct {
	err      error
	identity string
}

// Orchestrator drives a Run through consecutive concurrency groups. One
// orchestrator serves both bulk claims and bulk update triggers; only the
// group size and the action differ.
type Orchestrator struct {
	logger *slog.Logger

	// OnGroup, when set, is invoked with fresh progress after each group's
	// outcomes have been applied.
	OnGroup func(p Progress)

	limit int
}

// New creates an orchestrator with the given concurrency limit per group.
func New(limit int) *Orchestrator {
	if limit <= 0 {
		limit = 1
	}
	return &Orchestrator{
		limit:  limit,
		logger: slog.Default().With("component", "batch"),
	}
}

// Limit returns the configured group size.
func (o *Orchestrator) Limit() int { return o.limit }

// Execute runs the action over the run's full target list. It is only legal
// on a run in the confirm phase. Per-item failures are swallowed into the
// results map and never abort sibling items or later groups.
func (o *Orchestrator) Execute(ctx context.Context, run *Run, action Action) error {
	if phase := run.Phase(); phase != PhaseConfirm {
		return fmt.Errorf("cannot execute run in phase %q", phase)
	}
	return o.process(ctx, run, run.Targets(), action)
}

// RetryFailed re-runs the action over exactly the identities currently
// failed, merging into the same results map. Entries outside the retry set
// keep their prior terminal value, and successes are never reset.
func (o *Orchestrator) RetryFailed(ctx context.Context, run *Run, action Action) error {
	if phase := run.Phase(); phase != PhaseDone {
		return fmt.Errorf("cannot retry run in phase %q", phase)
	}
	failed := run.failedTargets()
	if len(failed) == 0 {
		return common.ErrNoFailedTargets
	}
	o.logger.Info("retrying failed targets", "count", len(failed))
	return o.process(ctx, run, failed, action)
}

func (o *Orchestrator) process(ctx context.Context, run *Run, targets []model.Candidate, action Action) error {
	run.begin(targets)

	groups := partition(targets, o.limit)
	o.logger.Info("starting batch run",
		"targets", len(targets),
		"groups", len(groups),
		"concurrency", o.limit)

	for i, group := range groups {
		// Cancellation is checked once per group boundary only; a group
		// already dispatched always settles in full.
		if run.Cancelled() || ctx.Err() != nil {
			o.logger.Warn("run cancelled, failing unstarted targets",
				"completed_groups", i,
				"remaining_groups", len(groups)-i)
			run.failRemaining("cancelled before start")
			run.finish()
			o.notify(run)
			return nil
		}

		outcomes := o.runGroup(ctx, group, action)
		run.applyGroup(outcomes)
		o.notify(run)

		o.logger.Debug("group settled", "group", i, "size", len(group))
	}

	run.finish()
	return nil
}

// runGroup dispatches every item in the group concurrently and waits for all
// of them. Each task settles to an outcome no matter what; a panicking action
// counts as a failure for its item only.
func (o *Orchestrator) runGroup(ctx context.Context, group []model.Candidate, action Action) []outcome {
	outcomes := make([]outcome, len(group))

	var wg sync.WaitGroup
	wg.Add(len(group))
	for i, c := range group {
		go func(i int, c model.Candidate) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					outcomes[i] = outcome{identity: c.Identity(), err: fmt.Errorf("action panicked: %v", rec)}
				}
			}()
			outcomes[i] = outcome{identity: c.Identity(), err: action(ctx, c)}
		}(i, c)
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) notify(run *Run) {
	if o.OnGroup != nil {
		o.OnGroup(run.Progress())
	}
}

// partition slices targets into consecutive groups of at most size, in
// selection order.
func partition(targets []model.Candidate, size int) [][]model.Candidate {
	if len(targets) == 0 {
		return nil
	}
	groups := make([][]model.Candidate, 0, (len(targets)+size-1)/size)
	for start := 0; start < len(targets); start += size {
		end := start + size
		if end > len(targets) {
			end = len(targets)
		}
		groups = append(groups, targets[start:end])
	}
	return groups
}

// Warnings summarizes cross-cutting caveats shown at confirm time: how many
// selected updates cross a major version, and how many claims will create new
// catalog entries.
func Warnings(targets []model.Candidate) []string {
	var majors, newEntries int
	for _, c := range targets {
		switch t := c.(type) {
		case model.UpdateCandidate:
			if t.Delta == model.UpdateMajor {
				majors++
			}
		case model.DiscoveryCandidate:
			newEntries++
		}
	}

	var warnings []string
	if majors > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of these are major-version changes", majors))
	}
	if newEntries > 0 {
		warnings = append(warnings, fmt.Sprintf("%d have no prior deployment and will create new entries", newEntries))
	}
	return warnings
}
