package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fleetdeck/fleetdeck/internal/service"
)

// ResolveInstaller returns the recommended installer descriptor for a
// resolved package and target architecture.
func (c *Client) ResolveInstaller(ctx context.Context, packageID, architecture string) (*service.InstallerDescriptor, error) {
	if packageID == "" {
		return nil, fmt.Errorf("package id cannot be empty")
	}

	query := url.Values{}
	if architecture != "" {
		query.Set("arch", architecture)
	}

	var desc struct {
		PackageID     string `json:"packageId"`
		Version       string `json:"version"`
		Architecture  string `json:"architecture"`
		InstallerType string `json:"installerType"`
		DownloadURL   string `json:"downloadUrl"`
	}
	path := "/api/packages/" + url.PathEscape(packageID) + "/installer"
	if err := c.get(ctx, "resolve installer", path, query, &desc); err != nil {
		return nil, err
	}

	return &service.InstallerDescriptor{
		PackageID:     desc.PackageID,
		Version:       desc.Version,
		Architecture:  desc.Architecture,
		InstallerType: desc.InstallerType,
		DownloadURL:   desc.DownloadURL,
	}, nil
}

// RecordClaim records a single claim of a discovered application against its
// resolved package.
func (c *Client) RecordClaim(ctx context.Context, req service.ClaimRequest) error {
	if req.CandidateID == "" || req.PackageID == "" {
		return fmt.Errorf("claim requires a candidate id and a package id")
	}

	body := struct {
		CandidateID string `json:"candidateId"`
		PackageID   string `json:"packageId"`
		DeviceCount int64  `json:"deviceCount"`
	}{req.CandidateID, req.PackageID, req.DeviceCount}

	if err := c.post(ctx, "record claim", "/api/claims", body, nil); err != nil {
		return err
	}

	c.logger.Debug("claim recorded", "candidate", req.CandidateID, "package", req.PackageID)
	return nil
}

// RecordManualLink records an operator-chosen link between a discovered
// application and a package. The server may warn that its candidate cache
// will serve stale rows until it expires.
func (c *Client) RecordManualLink(ctx context.Context, req service.LinkRequest) (*service.LinkResult, error) {
	if req.CandidateID == "" || req.PackageID == "" {
		return nil, fmt.Errorf("manual link requires a candidate id and a package id")
	}

	body := struct {
		CandidateID string `json:"candidateId"`
		Publisher   string `json:"publisher"`
		PackageID   string `json:"packageId"`
	}{req.CandidateID, req.Publisher, req.PackageID}

	var resp struct {
		CacheWarning string `json:"cacheWarning"`
	}
	if err := c.post(ctx, "record manual link", "/api/links", body, &resp); err != nil {
		return nil, err
	}

	if resp.CacheWarning != "" {
		c.logger.Warn("manual link recorded with cache warning", "warning", resp.CacheWarning)
	}
	return &service.LinkResult{CacheWarning: resp.CacheWarning}, nil
}

// TriggerUpdates triggers updates for up to 10 package/tenant pairs in one
// call and returns per-item outcomes keyed back by identity.
func (c *Client) TriggerUpdates(ctx context.Context, items []service.UpdateRef) (*service.TriggerResult, error) {
	if len(items) == 0 {
		return &service.TriggerResult{}, nil
	}
	if len(items) > maxTriggerBatch {
		return nil, fmt.Errorf("at most %d updates may be triggered per call, got %d", maxTriggerBatch, len(items))
	}

	type itemDTO struct {
		PackageID string `json:"packageId"`
		TenantID  string `json:"tenantId"`
	}
	body := struct {
		Items []itemDTO `json:"items"`
	}{Items: make([]itemDTO, 0, len(items))}
	for _, item := range items {
		body.Items = append(body.Items, itemDTO{PackageID: item.PackageID, TenantID: item.TenantID})
	}

	var resp struct {
		Results []struct {
			PackageID string `json:"packageId"`
			TenantID  string `json:"tenantId"`
			Success   bool   `json:"success"`
			Error     string `json:"error"`
		} `json:"results"`
		Triggered int `json:"triggered"`
		Failed    int `json:"failed"`
	}
	if err := c.post(ctx, "trigger updates", "/api/updates/trigger", body, &resp); err != nil {
		return nil, err
	}

	result := &service.TriggerResult{
		Triggered: resp.Triggered,
		Failed:    resp.Failed,
		Items:     make([]service.TriggerItem, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		result.Items = append(result.Items, service.TriggerItem{
			Identity: r.PackageID + "/" + r.TenantID,
			Success:  r.Success,
			Error:    r.Error,
		})
	}

	c.logger.Info("update trigger completed",
		"requested", len(items),
		"triggered", result.Triggered,
		"failed", result.Failed)
	return result, nil
}
