package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

func upgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Bulk-trigger available package updates",
		Long: `Trigger every eligible update: not pinned, not ignored, newer version
available. Triggers run in concurrency groups with per-item status;
failed items can be retried without touching the successes.

Examples:
  fleetdeck upgrade                  # Trigger everything eligible
  fleetdeck upgrade --tier patch     # Only patch-level updates
  fleetdeck upgrade --critical       # Only updates flagged critical`,
		RunE: runUpgrade,
	}

	cmd.Flags().StringSlice("tier", nil, "Version-delta tiers to include (major, minor, patch)")
	cmd.Flags().Bool("critical", false, "Restrict to updates flagged critical")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().Int("concurrency", defaultUpgradeConcurrency, "Triggers in flight per group")

	_ = viper.BindPFlag("upgrade.tier", cmd.Flags().Lookup("tier"))
	_ = viper.BindPFlag("upgrade.critical", cmd.Flags().Lookup("critical"))
	_ = viper.BindPFlag("upgrade.yes", cmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("upgrade.concurrency", cmd.Flags().Lookup("concurrency"))

	return cmd
}

func runUpgrade(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	page, err := eng.LoadUpdates(ctx, false)
	if err != nil {
		return err
	}

	var tiers map[int]bool
	if names := viper.GetStringSlice("upgrade.tier"); len(names) > 0 {
		tiers = make(map[int]bool, len(names))
		for _, t := range names {
			tiers[model.UpdateTier(t).Rank()] = true
		}
	}
	criticalOnly := viper.GetBool("upgrade.critical")

	targets := make([]model.Candidate, 0, len(page.Candidates))
	for _, c := range page.Candidates {
		if !c.ActionEligible() {
			continue
		}
		if tiers != nil && !tiers[c.TierRank()] {
			continue
		}
		if criticalOnly && !c.Critical {
			continue
		}
		targets = append(targets, c)
	}

	return runBatchFlow(ctx, eng, targets,
		eng.UpdateAction(),
		viper.GetInt("upgrade.concurrency"),
		"Triggering updates",
		viper.GetBool("upgrade.yes"))
}
