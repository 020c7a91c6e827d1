// Package main contains the fleetdeck CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/fleetdeck/fleetdeck/internal/api"
	"github.com/fleetdeck/fleetdeck/internal/auth"
	"github.com/fleetdeck/fleetdeck/internal/cart"
	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/engine"
	"github.com/fleetdeck/fleetdeck/internal/notify"
	"github.com/fleetdeck/fleetdeck/internal/pipeline"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// Concurrency defaults: claims hit heavier endpoints than update triggers.
const (
	defaultClaimConcurrency   = 5
	defaultUpgradeConcurrency = 10
)

func newTokenProvider() (service.TokenProvider, error) {
	if token := viper.GetString("api.token"); token != "" {
		return auth.Static(token), nil
	}
	return auth.NewClientCredentials(auth.ClientCredentialsConfig{
		TokenURL:     viper.GetString("auth.token_url"),
		ClientID:     viper.GetString("auth.client_id"),
		ClientSecret: viper.GetString("auth.client_secret"),
		Scopes:       viper.GetStringSlice("auth.scopes"),
	})
}

func newAPIClient() (*api.Client, error) {
	tokens, err := newTokenProvider()
	if err != nil {
		return nil, err
	}
	return api.NewClient(api.Config{
		BaseURL: viper.GetString("api.base_url"),
		Tokens:  tokens,
		Timeout: viper.GetDuration("api.timeout"),
	})
}

func openCart(ctx context.Context) (*cart.Store, error) {
	path := viper.GetString("cart.path")
	if path == "" {
		path = "$HOME/.local/share/fleetdeck/cart.db"
	}
	store, err := cart.NewStore(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open selection store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		closeStore(store)
		return nil, err
	}
	return store, nil
}

func closeStore(store *cart.Store) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close selection store", "error", err)
	}
}

// newEngine assembles the engine plus the store it owns. The caller must
// close the returned store.
func newEngine(ctx context.Context) (*engine.Engine, *cart.Store, error) {
	client, err := newAPIClient()
	if err != nil {
		return nil, nil, err
	}
	store, err := openCart(ctx)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(client, store, notify.NewCLISink()), store, nil
}

// viewState builds the pipeline state shared by the list commands. Tier
// parsing differs per candidate kind and stays in each command.
func viewState(query, sortMode, order string, showClaimed bool) pipeline.State {
	return pipeline.State{
		Query:       query,
		ShowClaimed: showClaimed,
		Sort:        pipeline.Mode(sortMode),
		Order:       pipeline.Order(order),
	}
}

func formatSynced(lastSynced *time.Time, fromCache bool) string {
	synced := "never"
	if lastSynced != nil {
		synced = lastSynced.Local().Format("2006-01-02 15:04")
	}
	if fromCache {
		return fmt.Sprintf("last synced %s (cached result)", synced)
	}
	return fmt.Sprintf("last synced %s", synced)
}
