package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

func claimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Bulk-claim matched applications into the catalog",
		Long: `Claim every eligible discovered application: confirmed match, resolved
package, not ignored, not already claimed. Claims run in concurrency
groups with per-item status; failed items can be retried without
touching the successes.

Examples:
  fleetdeck claim                     # Claim everything eligible
  fleetdeck claim --query chrome      # Claim eligible candidates matching "chrome"
  fleetdeck claim --yes               # Skip the confirmation prompt`,
		RunE: runClaim,
	}

	cmd.Flags().StringP("query", "q", "", "Restrict to candidates matching name, publisher or id")
	cmd.Flags().String("arch", "x64", "Target architecture for installer resolution")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().Int("concurrency", defaultClaimConcurrency, "Claims in flight per group")

	_ = viper.BindPFlag("claim.query", cmd.Flags().Lookup("query"))
	_ = viper.BindPFlag("claim.arch", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("claim.yes", cmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("claim.concurrency", cmd.Flags().Lookup("concurrency"))

	return cmd
}

func runClaim(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, store, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	page, err := eng.LoadDiscovery(ctx, false)
	if err != nil {
		return err
	}

	claimed, err := eng.ClaimedProjection(ctx)
	if err != nil {
		return err
	}

	query := strings.ToLower(viper.GetString("claim.query"))
	targets := make([]model.Candidate, 0, len(page.Candidates))
	for _, c := range page.Candidates {
		if !c.ActionEligible() || claimed(c) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), query) &&
			!strings.Contains(strings.ToLower(c.PublisherName), query) &&
			!strings.Contains(strings.ToLower(c.ID), query) {
			continue
		}
		targets = append(targets, c)
	}

	return runBatchFlow(ctx, eng, targets,
		eng.ClaimAction(viper.GetString("claim.arch")),
		viper.GetInt("claim.concurrency"),
		"Claiming applications",
		viper.GetBool("claim.yes"))
}
