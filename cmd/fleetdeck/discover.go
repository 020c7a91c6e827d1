package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetdeck/fleetdeck/internal/cli"
	"github.com/fleetdeck/fleetdeck/internal/model"
	"github.com/fleetdeck/fleetdeck/internal/pipeline"
)

func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List discovered-but-unmanaged applications",
		Long: `List applications detected on managed devices that are not yet claimed
into the catalog, with their match classification.

Examples:
  fleetdeck discover                      # All unclaimed candidates
  fleetdeck discover --refresh            # Bypass the server-side cache
  fleetdeck discover --tier matched       # Only confirmed matches
  fleetdeck discover --sort devices --order desc`,
		RunE: runDiscover,
	}

	cmd.Flags().Bool("refresh", false, "Bypass the server-side cache")
	cmd.Flags().StringP("query", "q", "", "Filter by name, publisher or id")
	cmd.Flags().StringSlice("tier", nil, "Match tiers to include (matched, partial, unmatched, pending)")
	cmd.Flags().Bool("show-claimed", false, "Include candidates already in the selection")
	cmd.Flags().String("sort", "name", "Sort mode (name, severity, tier, detected, devices)")
	cmd.Flags().String("order", "asc", "Sort order for detected/devices (asc, desc)")

	_ = viper.BindPFlag("discover.refresh", cmd.Flags().Lookup("refresh"))
	_ = viper.BindPFlag("discover.query", cmd.Flags().Lookup("query"))
	_ = viper.BindPFlag("discover.tier", cmd.Flags().Lookup("tier"))
	_ = viper.BindPFlag("discover.show_claimed", cmd.Flags().Lookup("show-claimed"))
	_ = viper.BindPFlag("discover.sort", cmd.Flags().Lookup("sort"))
	_ = viper.BindPFlag("discover.order", cmd.Flags().Lookup("order"))

	return cmd
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	page, err := eng.LoadDiscovery(ctx, viper.GetBool("discover.refresh"))
	if err != nil {
		return err
	}

	claimed, err := eng.ClaimedProjection(ctx)
	if err != nil {
		return err
	}

	st := viewState(
		viper.GetString("discover.query"),
		viper.GetString("discover.sort"),
		viper.GetString("discover.order"),
		viper.GetBool("discover.show_claimed"))
	if tiers := viper.GetStringSlice("discover.tier"); len(tiers) > 0 {
		st.Tiers = make(map[int]bool, len(tiers))
		for _, t := range tiers {
			st.Tiers[model.MatchTier(t).Rank()] = true
		}
	}

	visible := pipeline.Apply(page.Candidates, st, func(c model.DiscoveryCandidate) bool {
		return claimed(c)
	})

	fmt.Println(cli.FormatTitle("Discovered applications"))
	cli.RenderDiscoveryTable(os.Stdout, visible, func(c model.Candidate) bool { return claimed(c) })
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d of %d shown, %s",
		len(visible), len(page.Candidates), formatSynced(page.LastSynced, page.FromCache))))

	return nil
}
