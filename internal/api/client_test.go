package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/common"
	"github.com/fleetdeck/fleetdeck/internal/model"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		Tokens:  staticTokens("test-token"),
	})
	require.NoError(t, err)
	// Shrink the backoff so retry paths stay fast under test.
	client.retryOpts = service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return client, server
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"valid", Config{BaseURL: "https://dash.example.com", Tokens: staticTokens("t")}, nil},
		{"missing base url", Config{Tokens: staticTokens("t")}, common.ErrMissingConfig},
		{"missing tokens", Config{BaseURL: "https://dash.example.com"}, common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListDiscovered(t *testing.T) {
	synced := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	var gotAuth, gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/candidates/discovered", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery

		_ = json.NewEncoder(w).Encode(map[string]any{
			"lastSyncedAt": synced,
			"fromCache":    true,
			"candidates": []map[string]any{
				{
					"id":                "app-1",
					"displayName":       "Firefox",
					"publisher":         "Mozilla",
					"matchStatus":       "matched",
					"resolvedPackageId": "Mozilla.Firefox",
					"confidence":        0.97,
					"deviceCount":       42,
					"detectedAt":        synced,
				},
			},
		})
	}))

	page, err := client.ListDiscovered(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Empty(t, gotQuery, "no forceRefresh parameter unless requested")
	assert.True(t, page.FromCache)
	require.NotNil(t, page.LastSynced)
	assert.True(t, page.LastSynced.Equal(synced))

	require.Len(t, page.Candidates, 1)
	c := page.Candidates[0]
	assert.Equal(t, "app-1", c.ID)
	assert.Equal(t, "Firefox", c.Name)
	assert.Equal(t, model.MatchConfirmed, c.Match)
	assert.Equal(t, "Mozilla.Firefox", c.ResolvedPackageID)
	assert.InDelta(t, 0.97, c.Confidence, 0.001)
	assert.Equal(t, int64(42), c.DeviceCount)
}

func TestListDiscoveredForceRefresh(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("forceRefresh")
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))

	page, err := client.ListDiscovered(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "true", gotQuery)
	assert.False(t, page.FromCache)
	assert.Empty(t, page.Candidates)
}

func TestListUpdates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/candidates/updates", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fromCache": false,
			"candidates": []map[string]any{
				{
					"packageId":      "Mozilla.Firefox",
					"tenantId":       "t1",
					"displayName":    "Firefox",
					"publisher":      "Mozilla",
					"currentVersion": "120.0",
					"latestVersion":  "121.0",
					"deviceCount":    10,
					"critical":       true,
					"pinned":         true,
				},
			},
		})
	}))

	page, err := client.ListUpdates(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, page.Candidates, 1)
	c := page.Candidates[0]
	assert.Equal(t, "Mozilla.Firefox/t1", c.Identity())
	assert.Equal(t, "120.0", c.CurrentVersion)
	assert.True(t, c.Critical)
	assert.True(t, c.Pinned)
}

func TestPermissionErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":       "forbidden",
				"permission": "DeviceManagementApps.ReadWrite.All",
				"message":    "caller lacks permission",
			},
		})
	}))

	_, err := client.ListDiscovered(context.Background(), false)
	require.Error(t, err)

	var permErr *common.PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, "DeviceManagementApps.ReadWrite.All", permErr.Permission)
	assert.Equal(t, int32(1), calls.Load(), "permission failures never resolve on their own")
}

func TestServerErrorRetriedOnFetch(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))

	_, err := client.ListDiscovered(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMutationNeverRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "backend unavailable"},
		})
	}))

	err := client.RecordClaim(context.Background(), service.ClaimRequest{
		CandidateID: "app-1",
		PackageID:   "Mozilla.Firefox",
	})
	require.Error(t, err)

	var netErr *common.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchErrorCarriesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "package not found"},
		})
	}))

	err := client.RecordClaim(context.Background(), service.ClaimRequest{
		CandidateID: "app-1",
		PackageID:   "Gone.Package",
	})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
	assert.Contains(t, fetchErr.Error(), "package not found")
}

func TestResolveInstaller(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/packages/Mozilla.Firefox/installer", r.URL.Path)
		require.Equal(t, "x64", r.URL.Query().Get("arch"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"packageId":     "Mozilla.Firefox",
			"version":       "121.0",
			"architecture":  "x64",
			"installerType": "msi",
			"downloadUrl":   "https://dl.example.com/firefox.msi",
		})
	}))

	desc, err := client.ResolveInstaller(context.Background(), "Mozilla.Firefox", "x64")
	require.NoError(t, err)
	assert.Equal(t, "121.0", desc.Version)
	assert.Equal(t, "msi", desc.InstallerType)
}

func TestResolveInstallerRequiresPackageID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.ResolveInstaller(context.Background(), "", "x64")
	assert.Error(t, err)
}

func TestRecordClaimSendsBody(t *testing.T) {
	var got struct {
		CandidateID string `json:"candidateId"`
		PackageID   string `json:"packageId"`
		DeviceCount int64  `json:"deviceCount"`
	}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/claims", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.RecordClaim(context.Background(), service.ClaimRequest{
		CandidateID: "app-1",
		PackageID:   "Mozilla.Firefox",
		DeviceCount: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "app-1", got.CandidateID)
	assert.Equal(t, "Mozilla.Firefox", got.PackageID)
	assert.Equal(t, int64(7), got.DeviceCount)
}

func TestRecordManualLinkSurfacesCacheWarning(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/links", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cacheWarning": "candidate list may be stale for up to 10 minutes",
		})
	}))

	result, err := client.RecordManualLink(context.Background(), service.LinkRequest{
		CandidateID: "app-1",
		PackageID:   "Mozilla.Firefox",
	})
	require.NoError(t, err)
	assert.Contains(t, result.CacheWarning, "stale")
}

func TestTriggerUpdates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/updates/trigger", r.URL.Path)

		var body struct {
			Items []struct {
				PackageID string `json:"packageId"`
				TenantID  string `json:"tenantId"`
			} `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Items, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"triggered": 1,
			"failed":    1,
			"results": []map[string]any{
				{"packageId": "Mozilla.Firefox", "tenantId": "t1", "success": true},
				{"packageId": "Adobe.Acrobat", "tenantId": "t1", "success": false, "error": "deployment ring locked"},
			},
		})
	}))

	result, err := client.TriggerUpdates(context.Background(), []service.UpdateRef{
		{PackageID: "Mozilla.Firefox", TenantID: "t1"},
		{PackageID: "Adobe.Acrobat", TenantID: "t1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Mozilla.Firefox/t1", result.Items[0].Identity)
	assert.True(t, result.Items[0].Success)
	assert.Equal(t, "Adobe.Acrobat/t1", result.Items[1].Identity)
	assert.Equal(t, "deployment ring locked", result.Items[1].Error)
}

func TestTriggerUpdatesBatchCap(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("an oversized batch must be rejected before any request")
	}))

	items := make([]service.UpdateRef, maxTriggerBatch+1)
	for i := range items {
		items[i] = service.UpdateRef{PackageID: "p", TenantID: "t"}
	}

	_, err := client.TriggerUpdates(context.Background(), items)
	assert.Error(t, err)
}

func TestTriggerUpdatesEmptyIsNoop(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected for an empty batch")
	}))

	result, err := client.TriggerUpdates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}
