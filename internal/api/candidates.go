package api

import (
	"context"
	"net/url"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/model"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// discoveredDTO mirrors the wire shape of one discovery candidate.
type discoveredDTO struct {
	ID                string    `json:"id"`
	DisplayName       string    `json:"displayName"`
	Publisher         string    `json:"publisher"`
	MatchStatus       string    `json:"matchStatus"`
	ResolvedPackageID string    `json:"resolvedPackageId"`
	Confidence        float64   `json:"confidence"`
	DeviceCount       int64     `json:"deviceCount"`
	DetectedAt        time.Time `json:"detectedAt"`
	Ignored           bool      `json:"ignored"`
}

type discoveredListDTO struct {
	LastSynced *time.Time      `json:"lastSyncedAt"`
	Candidates []discoveredDTO `json:"candidates"`
	FromCache  bool            `json:"fromCache"`
}

// updateDTO mirrors the wire shape of one update candidate.
type updateDTO struct {
	PackageID      string    `json:"packageId"`
	TenantID       string    `json:"tenantId"`
	DisplayName    string    `json:"displayName"`
	Publisher      string    `json:"publisher"`
	CurrentVersion string    `json:"currentVersion"`
	LatestVersion  string    `json:"latestVersion"`
	DeviceCount    int64     `json:"deviceCount"`
	ReleasedAt     time.Time `json:"releasedAt"`
	Critical       bool      `json:"critical"`
	Pinned         bool      `json:"pinned"`
	Ignored        bool      `json:"ignored"`
}

type updateListDTO struct {
	LastSynced *time.Time  `json:"lastSyncedAt"`
	Candidates []updateDTO `json:"candidates"`
	FromCache  bool        `json:"fromCache"`
}

func refreshQuery(forceRefresh bool) url.Values {
	if !forceRefresh {
		return nil
	}
	return url.Values{"forceRefresh": []string{"true"}}
}

// ListDiscovered fetches the current discovery candidate list. forceRefresh
// bypasses the server-side cache; the returned page reports whether the
// server answered from cache and when it last synchronized.
func (c *Client) ListDiscovered(ctx context.Context, forceRefresh bool) (*service.DiscoveryPage, error) {
	c.logger.Info("fetching discovery candidates", "force_refresh", forceRefresh)

	var list discoveredListDTO
	if err := c.get(ctx, "list discovered apps", "/api/candidates/discovered", refreshQuery(forceRefresh), &list); err != nil {
		return nil, err
	}

	page := &service.DiscoveryPage{
		LastSynced: list.LastSynced,
		FromCache:  list.FromCache,
		Candidates: make([]model.DiscoveryCandidate, 0, len(list.Candidates)),
	}
	for _, d := range list.Candidates {
		page.Candidates = append(page.Candidates, model.DiscoveryCandidate{
			ID:                d.ID,
			Name:              d.DisplayName,
			PublisherName:     d.Publisher,
			Match:             model.MatchTier(d.MatchStatus),
			ResolvedPackageID: d.ResolvedPackageID,
			Confidence:        d.Confidence,
			DeviceCount:       d.DeviceCount,
			DetectedAt:        d.DetectedAt,
			Ignored:           d.Ignored,
		})
	}

	c.logger.Info("fetched discovery candidates",
		"count", len(page.Candidates),
		"from_cache", page.FromCache)
	return page, nil
}

// ListUpdates fetches the current update candidate list.
func (c *Client) ListUpdates(ctx context.Context, forceRefresh bool) (*service.UpdatePage, error) {
	c.logger.Info("fetching update candidates", "force_refresh", forceRefresh)

	var list updateListDTO
	if err := c.get(ctx, "list available updates", "/api/candidates/updates", refreshQuery(forceRefresh), &list); err != nil {
		return nil, err
	}

	page := &service.UpdatePage{
		LastSynced: list.LastSynced,
		FromCache:  list.FromCache,
		Candidates: make([]model.UpdateCandidate, 0, len(list.Candidates)),
	}
	for _, u := range list.Candidates {
		page.Candidates = append(page.Candidates, model.UpdateCandidate{
			PackageID:      u.PackageID,
			TenantID:       u.TenantID,
			Name:           u.DisplayName,
			PublisherName:  u.Publisher,
			CurrentVersion: u.CurrentVersion,
			LatestVersion:  u.LatestVersion,
			DeviceCount:    u.DeviceCount,
			ReleasedAt:     u.ReleasedAt,
			Critical:       u.Critical,
			Pinned:         u.Pinned,
			Ignored:        u.Ignored,
		})
	}

	c.logger.Info("fetched update candidates",
		"count", len(page.Candidates),
		"from_cache", page.FromCache)
	return page, nil
}
