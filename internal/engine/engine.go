// Package engine glues the fetcher, classification and selection layers into
// the high-level flows the CLI drives.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fleetdeck/fleetdeck/internal/batch"
	"github.com/fleetdeck/fleetdeck/internal/classify"
	"github.com/fleetdeck/fleetdeck/internal/model"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// Engine coordinates one session against the dashboard API. It reads only its
// explicit dependencies; all batch state lives in the Run handle it is given.
type Engine struct {
	api      service.CandidateSource
	cart     service.SelectionStore
	notifier service.Notifier
	logger   *slog.Logger

	mu                 sync.Mutex
	refreshedDiscovery bool
	refreshedUpdates   bool
}

// New creates an engine with the given dependencies.
func New(api service.CandidateSource, cart service.SelectionStore, notifier service.Notifier) *Engine {
	return &Engine{
		api:      api,
		cart:     cart,
		notifier: notifier,
		logger:   slog.Default().With("component", "engine"),
	}
}

// LoadDiscovery fetches, excludes vendor-owned entries and deduplicates the
// discovery candidate set. When a non-forced fetch answers from the server
// cache with zero candidates, exactly one automatic force refresh is issued
// per engine instance; a repeating empty cached result never triggers more.
func (e *Engine) LoadDiscovery(ctx context.Context, forceRefresh bool) (*service.DiscoveryPage, error) {
	page, err := e.api.ListDiscovered(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}

	if !forceRefresh && page.FromCache && len(page.Candidates) == 0 && e.markRefreshed(&e.refreshedDiscovery) {
		e.logger.Info("empty cached discovery result, forcing one refresh")
		page, err = e.api.ListDiscovered(ctx, true)
		if err != nil {
			return nil, err
		}
	}

	page.Candidates = classify.PrepareDiscovered(page.Candidates)
	return page, nil
}

// LoadUpdates fetches, excludes, deduplicates and classifies the update
// candidate set, with the same single automatic force refresh on an empty
// cached result.
func (e *Engine) LoadUpdates(ctx context.Context, forceRefresh bool) (*service.UpdatePage, error) {
	page, err := e.api.ListUpdates(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}

	if !forceRefresh && page.FromCache && len(page.Candidates) == 0 && e.markRefreshed(&e.refreshedUpdates) {
		e.logger.Info("empty cached update result, forcing one refresh")
		page, err = e.api.ListUpdates(ctx, true)
		if err != nil {
			return nil, err
		}
	}

	page.Candidates = classify.PrepareUpdates(page.Candidates)
	return page, nil
}

// markRefreshed flips the given refresh flag once. Returns false when the
// automatic refresh was already spent.
func (e *Engine) markRefreshed(flag *bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

// ClaimedProjection returns a pure predicate deriving claim state from a
// point-in-time selection snapshot. The flag is recomputed on every read and
// never cached on the candidate.
func (e *Engine) ClaimedProjection(ctx context.Context) (func(model.Candidate) bool, error) {
	snapshot, err := e.cart.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot selection store: %w", err)
	}
	return func(c model.Candidate) bool {
		return model.Claimed(c, snapshot)
	}, nil
}

// ClaimAction returns the per-item batch action for bulk claiming: resolve
// the installer, record the claim, then insert into the selection store
// silently. The insert happens as soon as this item succeeds, not at group
// end, so the cart stays consistent with the results map even if the run is
// cancelled later.
func (e *Engine) ClaimAction(architecture string) batch.Action {
	return func(ctx context.Context, c model.Candidate) error {
		dc, ok := c.(model.DiscoveryCandidate)
		if !ok {
			return fmt.Errorf("claim action requires a discovery candidate, got %T", c)
		}

		if _, err := e.api.ResolveInstaller(ctx, dc.ResolvedPackageID, architecture); err != nil {
			return fmt.Errorf("failed to resolve installer: %w", err)
		}

		if err := e.api.RecordClaim(ctx, service.ClaimRequest{
			CandidateID: dc.ID,
			PackageID:   dc.ResolvedPackageID,
			DeviceCount: dc.DeviceCount,
		}); err != nil {
			return err
		}

		if err := e.cart.AddSilently(ctx, service.SelectionItem{
			Identity:    dc.ID,
			PackageID:   dc.ResolvedPackageID,
			DisplayName: dc.Name,
			DeviceCount: dc.DeviceCount,
		}); err != nil {
			return fmt.Errorf("claim recorded but selection insert failed: %w", err)
		}

		return nil
	}
}

// UpdateAction returns the per-item batch action for bulk update triggering.
// Each item goes through the trigger endpoint individually; the orchestrator
// provides the grouping, and the endpoint's per-item error string becomes the
// item's failure label.
func (e *Engine) UpdateAction() batch.Action {
	return func(ctx context.Context, c model.Candidate) error {
		uc, ok := c.(model.UpdateCandidate)
		if !ok {
			return fmt.Errorf("update action requires an update candidate, got %T", c)
		}

		result, err := e.api.TriggerUpdates(ctx, []service.UpdateRef{{
			PackageID: uc.PackageID,
			TenantID:  uc.TenantID,
		}})
		if err != nil {
			return err
		}

		for _, item := range result.Items {
			if item.Identity == uc.Identity() && !item.Success {
				if item.Error != "" {
					return fmt.Errorf("%s", item.Error)
				}
				return fmt.Errorf("update trigger rejected")
			}
		}
		return nil
	}
}

// ReportRun posts the terminal notification for a finished run: a success
// summary, or a warning carrying the failed count and a retry hint.
func (e *Engine) ReportRun(run *batch.Run, subject string) {
	p := run.Progress()
	if p.Failed == 0 {
		e.notifier.Notify(service.Notification{
			Title:    fmt.Sprintf("%s complete: %d succeeded", subject, p.Succeeded),
			Severity: service.SeveritySuccess,
		})
		return
	}
	e.notifier.Notify(service.Notification{
		Title:       fmt.Sprintf("%s finished with failures: %d succeeded, %d failed", subject, p.Succeeded, p.Failed),
		Description: "failed items can be retried without touching the successes",
		Severity:    service.SeverityWarning,
	})
}
