package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetdeck/fleetdeck/internal/cli"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <candidate-id> <package-id>",
		Short: "Manually link a discovered application to a package",
		Long: `Record an operator-chosen link between a discovered application and a
catalog package, overriding the matcher. The server may warn that the
candidate list stays stale until its cache expires.

Example:
  fleetdeck link app-8843 Mozilla.Firefox --publisher Mozilla`,
		Args: cobra.ExactArgs(2),
		RunE: runLink,
	}

	cmd.Flags().String("publisher", "", "Publisher name to record with the link")
	_ = viper.BindPFlag("link.publisher", cmd.Flags().Lookup("publisher"))

	return cmd
}

func runLink(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	result, err := client.RecordManualLink(ctx, service.LinkRequest{
		CandidateID: args[0],
		PackageID:   args[1],
		Publisher:   viper.GetString("link.publisher"),
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("linked %s to %s", args[0], args[1])))
	if result.CacheWarning != "" {
		fmt.Println(cli.FormatWarning(result.CacheWarning))
	}
	return nil
}
