package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/batch"
	"github.com/fleetdeck/fleetdeck/internal/model"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// fakeSource scripts CandidateSource responses and records the calls made.
type fakeSource struct {
	discoveryPages []*service.DiscoveryPage
	updatePages    []*service.UpdatePage
	discoveryErr   error

	discoveredCalls []bool
	updateCalls     []bool
	resolved        []string
	claims          []service.ClaimRequest
	triggers        [][]service.UpdateRef

	resolveErr error
	claimErr   error
	triggerErr error
	triggerRes *service.TriggerResult
}

func (f *fakeSource) ListDiscovered(_ context.Context, forceRefresh bool) (*service.DiscoveryPage, error) {
	f.discoveredCalls = append(f.discoveredCalls, forceRefresh)
	if f.discoveryErr != nil {
		return nil, f.discoveryErr
	}
	page := f.discoveryPages[0]
	if len(f.discoveryPages) > 1 {
		f.discoveryPages = f.discoveryPages[1:]
	}
	return &service.DiscoveryPage{
		LastSynced: page.LastSynced,
		FromCache:  page.FromCache,
		Candidates: append([]model.DiscoveryCandidate(nil), page.Candidates...),
	}, nil
}

func (f *fakeSource) ListUpdates(_ context.Context, forceRefresh bool) (*service.UpdatePage, error) {
	f.updateCalls = append(f.updateCalls, forceRefresh)
	page := f.updatePages[0]
	if len(f.updatePages) > 1 {
		f.updatePages = f.updatePages[1:]
	}
	return &service.UpdatePage{
		LastSynced: page.LastSynced,
		FromCache:  page.FromCache,
		Candidates: append([]model.UpdateCandidate(nil), page.Candidates...),
	}, nil
}

func (f *fakeSource) ResolveInstaller(_ context.Context, packageID, _ string) (*service.InstallerDescriptor, error) {
	f.resolved = append(f.resolved, packageID)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &service.InstallerDescriptor{PackageID: packageID}, nil
}

func (f *fakeSource) RecordClaim(_ context.Context, req service.ClaimRequest) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.claims = append(f.claims, req)
	return nil
}

func (f *fakeSource) RecordManualLink(context.Context, service.LinkRequest) (*service.LinkResult, error) {
	return &service.LinkResult{}, nil
}

func (f *fakeSource) TriggerUpdates(_ context.Context, items []service.UpdateRef) (*service.TriggerResult, error) {
	f.triggers = append(f.triggers, items)
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	if f.triggerRes != nil {
		return f.triggerRes, nil
	}
	result := &service.TriggerResult{Triggered: len(items)}
	for _, item := range items {
		result.Items = append(result.Items, service.TriggerItem{Identity: item.Identity(), Success: true})
	}
	return result, nil
}

// fakeCart is an in-memory SelectionStore.
type fakeCart struct {
	items       map[string]service.SelectionItem
	snapshotErr error
}

func newFakeCart() *fakeCart {
	return &fakeCart{items: make(map[string]service.SelectionItem)}
}

func (f *fakeCart) Add(ctx context.Context, item service.SelectionItem) error {
	return f.AddSilently(ctx, item)
}

func (f *fakeCart) AddSilently(_ context.Context, item service.SelectionItem) error {
	f.items[item.Identity] = item
	return nil
}

func (f *fakeCart) Contains(_ context.Context, identity string) (bool, error) {
	_, ok := f.items[identity]
	return ok, nil
}

func (f *fakeCart) Snapshot(context.Context) (map[string]struct{}, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	out := make(map[string]struct{}, len(f.items))
	for id, item := range f.items {
		out[id] = struct{}{}
		if item.PackageID != "" {
			out[item.PackageID] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeCart) List(context.Context) ([]service.SelectionItem, error) {
	out := make([]service.SelectionItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeCart) Remove(_ context.Context, identity string) error {
	delete(f.items, identity)
	return nil
}

func (f *fakeCart) Clear(context.Context) error {
	f.items = make(map[string]service.SelectionItem)
	return nil
}

func (f *fakeCart) Close() error { return nil }

// fakeNotifier collects notifications.
type fakeNotifier struct {
	notes []service.Notification
}

func (f *fakeNotifier) Notify(n service.Notification) {
	f.notes = append(f.notes, n)
}

func TestLoadDiscoveryClassifies(t *testing.T) {
	source := &fakeSource{discoveryPages: []*service.DiscoveryPage{{
		Candidates: []model.DiscoveryCandidate{
			{ID: "app-1", Name: "Firefox", PublisherName: "Mozilla"},
			{ID: "app-2", Name: "Teams", PublisherName: "Microsoft Corporation"},
			{ID: "app-1", Name: "Firefox dup", PublisherName: "Mozilla"},
		},
	}}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	page, err := eng.LoadDiscovery(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, page.Candidates, 1)
	assert.Equal(t, "app-1", page.Candidates[0].ID)
	assert.Equal(t, []bool{false}, source.discoveredCalls)
}

func TestLoadDiscoveryAutoRefreshOnce(t *testing.T) {
	empty := &service.DiscoveryPage{FromCache: true}
	fresh := &service.DiscoveryPage{Candidates: []model.DiscoveryCandidate{
		{ID: "app-1", Name: "Firefox", PublisherName: "Mozilla"},
	}}
	source := &fakeSource{discoveryPages: []*service.DiscoveryPage{empty, fresh}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	page, err := eng.LoadDiscovery(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, page.Candidates, 1)
	assert.Equal(t, []bool{false, true}, source.discoveredCalls,
		"an empty cached result triggers exactly one automatic force refresh")

	// A second empty cached answer must not refresh again.
	source.discoveryPages = []*service.DiscoveryPage{empty}
	page, err = eng.LoadDiscovery(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, page.Candidates)
	assert.Equal(t, []bool{false, true, false}, source.discoveredCalls)
}

func TestLoadDiscoveryNoAutoRefreshWhenForced(t *testing.T) {
	source := &fakeSource{discoveryPages: []*service.DiscoveryPage{{FromCache: true}}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	_, err := eng.LoadDiscovery(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, source.discoveredCalls)
}

func TestLoadDiscoveryNoAutoRefreshOnFreshEmpty(t *testing.T) {
	source := &fakeSource{discoveryPages: []*service.DiscoveryPage{{FromCache: false}}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	_, err := eng.LoadDiscovery(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, source.discoveredCalls,
		"a genuinely empty fresh result is accepted as-is")
}

func TestLoadUpdatesDerivesTiers(t *testing.T) {
	source := &fakeSource{updatePages: []*service.UpdatePage{{
		Candidates: []model.UpdateCandidate{
			{PackageID: "Mozilla.Firefox", TenantID: "t1", PublisherName: "Mozilla", CurrentVersion: "1.0.0", LatestVersion: "2.0.0"},
		},
	}}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	page, err := eng.LoadUpdates(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, page.Candidates, 1)
	assert.Equal(t, model.UpdateMajor, page.Candidates[0].Delta)
}

func TestLoadUpdatesAutoRefreshOnce(t *testing.T) {
	empty := &service.UpdatePage{FromCache: true}
	source := &fakeSource{updatePages: []*service.UpdatePage{empty, empty, empty}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	_, err := eng.LoadUpdates(context.Background(), false)
	require.NoError(t, err)
	_, err = eng.LoadUpdates(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true, false}, source.updateCalls)
}

func TestClaimedProjection(t *testing.T) {
	cart := newFakeCart()
	require.NoError(t, cart.AddSilently(context.Background(), service.SelectionItem{
		Identity:  "app-1",
		PackageID: "Mozilla.Firefox",
	}))
	eng := New(&fakeSource{}, cart, &fakeNotifier{})

	claimed, err := eng.ClaimedProjection(context.Background())
	require.NoError(t, err)

	assert.True(t, claimed(model.DiscoveryCandidate{ID: "app-1"}))
	assert.True(t, claimed(model.DiscoveryCandidate{ID: "other", ResolvedPackageID: "Mozilla.Firefox"}),
		"claim state is visible through the resolved package reference")
	assert.False(t, claimed(model.DiscoveryCandidate{ID: "app-2"}))
}

func TestClaimedProjectionSnapshotIsolated(t *testing.T) {
	cart := newFakeCart()
	eng := New(&fakeSource{}, cart, &fakeNotifier{})

	claimed, err := eng.ClaimedProjection(context.Background())
	require.NoError(t, err)

	require.NoError(t, cart.AddSilently(context.Background(), service.SelectionItem{Identity: "app-1"}))
	assert.False(t, claimed(model.DiscoveryCandidate{ID: "app-1"}),
		"a projection reflects the snapshot it was derived from")

	claimed, err = eng.ClaimedProjection(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed(model.DiscoveryCandidate{ID: "app-1"}))
}

func TestClaimActionHappyPath(t *testing.T) {
	source := &fakeSource{}
	cart := newFakeCart()
	eng := New(source, cart, &fakeNotifier{})

	candidate := model.DiscoveryCandidate{
		ID:                "app-1",
		Name:              "Firefox",
		ResolvedPackageID: "Mozilla.Firefox",
		Match:             model.MatchConfirmed,
		DeviceCount:       9,
	}

	err := eng.ClaimAction("x64")(context.Background(), candidate)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mozilla.Firefox"}, source.resolved)
	require.Len(t, source.claims, 1)
	assert.Equal(t, "app-1", source.claims[0].CandidateID)
	assert.Equal(t, int64(9), source.claims[0].DeviceCount)

	inCart, err := cart.Contains(context.Background(), "app-1")
	require.NoError(t, err)
	assert.True(t, inCart, "a successful claim lands in the selection store immediately")
}

func TestClaimActionResolveFailureSkipsClaim(t *testing.T) {
	source := &fakeSource{resolveErr: errors.New("no installer for arch")}
	cart := newFakeCart()
	eng := New(source, cart, &fakeNotifier{})

	err := eng.ClaimAction("arm64")(context.Background(), model.DiscoveryCandidate{
		ID:                "app-1",
		ResolvedPackageID: "Mozilla.Firefox",
	})
	require.Error(t, err)
	assert.Empty(t, source.claims, "no claim is recorded when the installer cannot be resolved")

	inCart, err := cart.Contains(context.Background(), "app-1")
	require.NoError(t, err)
	assert.False(t, inCart)
}

func TestClaimActionRejectsWrongKind(t *testing.T) {
	eng := New(&fakeSource{}, newFakeCart(), &fakeNotifier{})
	err := eng.ClaimAction("x64")(context.Background(), model.UpdateCandidate{PackageID: "p", TenantID: "t"})
	assert.Error(t, err)
}

func TestUpdateActionHappyPath(t *testing.T) {
	source := &fakeSource{}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	err := eng.UpdateAction()(context.Background(), model.UpdateCandidate{
		PackageID: "Mozilla.Firefox",
		TenantID:  "t1",
	})
	require.NoError(t, err)

	require.Len(t, source.triggers, 1)
	require.Len(t, source.triggers[0], 1)
	assert.Equal(t, "Mozilla.Firefox/t1", source.triggers[0][0].Identity())
}

func TestUpdateActionSurfacesPerItemError(t *testing.T) {
	source := &fakeSource{triggerRes: &service.TriggerResult{
		Failed: 1,
		Items: []service.TriggerItem{
			{Identity: "Mozilla.Firefox/t1", Success: false, Error: "deployment ring locked"},
		},
	}}
	eng := New(source, newFakeCart(), &fakeNotifier{})

	err := eng.UpdateAction()(context.Background(), model.UpdateCandidate{
		PackageID: "Mozilla.Firefox",
		TenantID:  "t1",
	})
	require.Error(t, err)
	assert.Equal(t, "deployment ring locked", err.Error())
}

func TestReportRun(t *testing.T) {
	notifier := &fakeNotifier{}
	eng := New(&fakeSource{}, newFakeCart(), notifier)

	run := batch.NewRun([]model.Candidate{
		model.DiscoveryCandidate{ID: "app-1", Match: model.MatchConfirmed, ResolvedPackageID: "p"},
	})
	require.NoError(t, batch.New(1).Execute(context.Background(), run,
		func(context.Context, model.Candidate) error { return nil }))

	eng.ReportRun(run, "Claiming applications")
	require.Len(t, notifier.notes, 1)
	assert.Equal(t, service.SeveritySuccess, notifier.notes[0].Severity)
	assert.Contains(t, notifier.notes[0].Title, "1 succeeded")

	failing := batch.NewRun([]model.Candidate{
		model.DiscoveryCandidate{ID: "app-2", Match: model.MatchConfirmed, ResolvedPackageID: "p"},
	})
	require.NoError(t, batch.New(1).Execute(context.Background(), failing,
		func(context.Context, model.Candidate) error { return errors.New("boom") }))

	eng.ReportRun(failing, "Claiming applications")
	require.Len(t, notifier.notes, 2)
	assert.Equal(t, service.SeverityWarning, notifier.notes[1].Severity)
	assert.Contains(t, notifier.notes[1].Title, "1 failed")
}
