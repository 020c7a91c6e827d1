// Package batch executes bulk actions over selected candidates in fixed-size
// concurrency groups, with per-item status tracking, cooperative cancellation
// at group boundaries, and retry of only the failed subset.
package batch

import (
	"fmt"
	"sync"

	"github.com/fleetdeck/fleetdeck/internal/common"
	"github.com/fleetdeck/fleetdeck/internal/model"
)

// Status is the per-identity batch status.
type Status string

// Batch statuses. An item is pending until its group settles, then terminal
// for the run. A failed item may be re-enqueued by a retry and become pending
// again; a succeeded item is never reset.
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Phase is the user-facing lifecycle of a run.
type Phase string

// Run phases.
const (
	PhaseConfirm    Phase = "confirm"
	PhaseProcessing Phase = "processing"
	PhaseDone       Phase = "done"
)

// Progress is a point-in-time aggregate over the results map.
type Progress struct {
	Succeeded int
	Failed    int
	Pending   int
	Total     int
}

// Run is one invocation of the orchestrator over a fixed target list. It owns
// the results map; the orchestrator is its only writer and readers only ever
// see copied snapshots. A Run is created in the confirm phase, carries no
// network activity until Execute, and is discarded once the user dismisses
// the done view.
type Run struct {
	mu        sync.Mutex
	phase     Phase
	targets   []model.Candidate
	byID      map[string]model.Candidate
	results   map[string]Status
	reasons   map[string]string
	cancelled bool
}

// NewRun creates a run in the confirm phase over the given selection. The
// target list is copied and never mutated mid-run.
func NewRun(targets []model.Candidate) *Run {
	r := &Run{
		phase:   PhaseConfirm,
		targets: make([]model.Candidate, len(targets)),
		byID:    make(map[string]model.Candidate, len(targets)),
		results: make(map[string]Status, len(targets)),
		reasons: make(map[string]string),
	}
	copy(r.targets, targets)
	for _, c := range r.targets {
		r.byID[c.Identity()] = c
	}
	return r
}

// Phase returns the current phase.
func (r *Run) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Targets returns a copy of the fixed target list.
func (r *Run) Targets() []model.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Candidate, len(r.targets))
	copy(out, r.targets)
	return out
}

// Cancel requests a cooperative stop. It is only legal while processing.
// Cancellation is advisory: calls already in flight for the current group run
// to completion and their outcomes are recorded; only unstarted groups are
// affected.
func (r *Run) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseProcessing {
		return fmt.Errorf("cannot cancel in phase %q: %w", r.phase, common.ErrRunNotProcessing)
	}
	r.cancelled = true
	return nil
}

// Cancelled reports whether a cooperative stop was requested.
func (r *Run) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// Snapshot returns a copy of the results map. Readers never observe the map
// mid-mutation; group outcomes land as a single step.
func (r *Run) Snapshot() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Status, len(r.results))
	for id, st := range r.results {
		out[id] = st
	}
	return out
}

// FailureReason returns the recorded failure label for an identity, if any.
func (r *Run) FailureReason(identity string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reasons[identity]
}

// Progress derives live aggregate counters by scanning the results map.
func (r *Run) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Progress{Total: len(r.results)}
	for _, st := range r.results {
		switch st {
		case StatusSuccess:
			p.Succeeded++
		case StatusFailed:
			p.Failed++
		case StatusPending:
			p.Pending++
		}
	}
	return p
}

// failedTargets returns the candidates whose current status is failed, in
// original selection order.
func (r *Run) failedTargets() []model.Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Candidate, 0)
	for _, c := range r.targets {
		if r.results[c.Identity()] == StatusFailed {
			out = append(out, c)
		}
	}
	return out
}

// begin moves the run into processing and seeds the given targets as pending.
// Entries outside the target set keep their prior value, which is what makes
// a retry merge into rather than replace earlier results.
func (r *Run) begin(targets []model.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = PhaseProcessing
	r.cancelled = false
	for _, c := range targets {
		id := c.Identity()
		r.results[id] = StatusPending
		delete(r.reasons, id)
	}
}

// applyGroup records one group's outcomes as a single step under the lock.
// An identity already marked success is never overwritten.
func (r *Run) applyGroup(outcomes []outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range outcomes {
		if r.results[o.identity] == StatusSuccess {
			continue
		}
		if o.err != nil {
			r.results[o.identity] = StatusFailed
			r.reasons[o.identity] = o.err.Error()
			continue
		}
		r.results[o.identity] = StatusSuccess
		delete(r.reasons, o.identity)
	}
}

// failRemaining marks every still-pending entry as failed with the given
// label. Used when the run stops before its remaining groups start.
func (r *Run) failRemaining(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, st := range r.results {
		if st == StatusPending {
			r.results[id] = StatusFailed
			r.reasons[id] = reason
		}
	}
}

// finish moves the run to done.
func (r *Run) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = PhaseDone
}
