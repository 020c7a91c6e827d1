// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

// DiscoveryPage is one fetch cycle of discovery candidates.
type DiscoveryPage struct {
	LastSynced *time.Time
	Candidates []model.DiscoveryCandidate
	FromCache  bool
}

// UpdatePage is one fetch cycle of update candidates.
type UpdatePage struct {
	LastSynced *time.Time
	Candidates []model.UpdateCandidate
	FromCache  bool
}

// InstallerDescriptor is the recommended installer for a resolved package.
type InstallerDescriptor struct {
	PackageID     string
	Version       string
	Architecture  string
	InstallerType string
	DownloadURL   string
}

// ClaimRequest records a single claim of a discovered application.
type ClaimRequest struct {
	CandidateID string
	PackageID   string
	DeviceCount int64
}

// LinkRequest records a manual link between a discovered application and a
// package chosen by the operator.
type LinkRequest struct {
	CandidateID string
	Publisher   string
	PackageID   string
}

// LinkResult is the outcome of recording a manual link.
type LinkResult struct {
	// CacheWarning is set when the server notes the candidate list may be
	// stale until its cache expires.
	CacheWarning string
}

// UpdateRef identifies one package/tenant pair for an update trigger.
type UpdateRef struct {
	PackageID string
	TenantID  string
}

// Identity returns the composite identity matching model.UpdateCandidate.
func (r UpdateRef) Identity() string { return r.PackageID + "/" + r.TenantID }

// TriggerItem is the per-item outcome of an update trigger call.
type TriggerItem struct {
	Identity string
	Error    string
	Success  bool
}

// TriggerResult is the aggregate outcome of an update trigger call.
type TriggerResult struct {
	Items     []TriggerItem
	Triggered int
	Failed    int
}

// CandidateSource defines the contract for the remote dashboard API.
type CandidateSource interface {
	ListDiscovered(ctx context.Context, forceRefresh bool) (*DiscoveryPage, error)
	ListUpdates(ctx context.Context, forceRefresh bool) (*UpdatePage, error)
	ResolveInstaller(ctx context.Context, packageID, architecture string) (*InstallerDescriptor, error)
	RecordClaim(ctx context.Context, req ClaimRequest) error
	RecordManualLink(ctx context.Context, req LinkRequest) (*LinkResult, error)
	TriggerUpdates(ctx context.Context, items []UpdateRef) (*TriggerResult, error)
}

// SelectionItem is one entry in the selection store.
type SelectionItem struct {
	AddedAt     time.Time
	Identity    string
	PackageID   string
	DisplayName string
	DeviceCount int64
}

// SelectionStore defines the contract for the external selection store (the
// cart). Membership is the single source of truth for derived claim state.
type SelectionStore interface {
	// Add inserts an item and announces it to the user.
	Add(ctx context.Context, item SelectionItem) error
	// AddSilently inserts an item without a user-visible notification. Batch
	// paths use it to avoid one notification per processed item.
	AddSilently(ctx context.Context, item SelectionItem) error
	Contains(ctx context.Context, identity string) (bool, error)
	// Snapshot returns the current membership keyed by identity and package id.
	Snapshot(ctx context.Context) (map[string]struct{}, error)
	List(ctx context.Context) ([]SelectionItem, error)
	Remove(ctx context.Context, identity string) error
	Clear(ctx context.Context) error
	Close() error
}

// TokenProvider supplies a bearer credential for API calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Severity classifies a notification.
type Severity string

// Notification severities.
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a terminal outcome surfaced to the user.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier accepts notifications for presentation.
type Notifier interface {
	Notify(n Notification)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
