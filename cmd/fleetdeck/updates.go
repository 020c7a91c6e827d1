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

func updatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "List available package updates",
		Long: `List managed packages with a newer version available, classified by the
size of the version delta.

Examples:
  fleetdeck updates                     # All pending updates
  fleetdeck updates --tier major        # Only major-version deltas
  fleetdeck updates --sort severity     # Critical updates first`,
		RunE: runUpdates,
	}

	cmd.Flags().Bool("refresh", false, "Bypass the server-side cache")
	cmd.Flags().StringP("query", "q", "", "Filter by name, publisher or id")
	cmd.Flags().StringSlice("tier", nil, "Version-delta tiers to include (major, minor, patch)")
	cmd.Flags().Bool("show-applied", false, "Include updates already triggered")
	cmd.Flags().String("sort", "name", "Sort mode (name, severity, tier, detected, devices)")
	cmd.Flags().String("order", "asc", "Sort order for detected/devices (asc, desc)")

	_ = viper.BindPFlag("updates.refresh", cmd.Flags().Lookup("refresh"))
	_ = viper.BindPFlag("updates.query", cmd.Flags().Lookup("query"))
	_ = viper.BindPFlag("updates.tier", cmd.Flags().Lookup("tier"))
	_ = viper.BindPFlag("updates.show_applied", cmd.Flags().Lookup("show-applied"))
	_ = viper.BindPFlag("updates.sort", cmd.Flags().Lookup("sort"))
	_ = viper.BindPFlag("updates.order", cmd.Flags().Lookup("order"))

	return cmd
}

func runUpdates(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	page, err := eng.LoadUpdates(ctx, viper.GetBool("updates.refresh"))
	if err != nil {
		return err
	}

	claimed, err := eng.ClaimedProjection(ctx)
	if err != nil {
		return err
	}

	st := viewState(
		viper.GetString("updates.query"),
		viper.GetString("updates.sort"),
		viper.GetString("updates.order"),
		viper.GetBool("updates.show_applied"))
	if tiers := viper.GetStringSlice("updates.tier"); len(tiers) > 0 {
		st.Tiers = make(map[int]bool, len(tiers))
		for _, t := range tiers {
			st.Tiers[model.UpdateTier(t).Rank()] = true
		}
	}

	visible := pipeline.Apply(page.Candidates, st, func(c model.UpdateCandidate) bool {
		return claimed(c)
	})

	fmt.Println(cli.FormatTitle("Available updates"))
	cli.RenderUpdateTable(os.Stdout, visible, func(c model.Candidate) bool { return claimed(c) })
	fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d of %d shown, %s",
		len(visible), len(page.Candidates), formatSynced(page.LastSynced, page.FromCache))))

	return nil
}
