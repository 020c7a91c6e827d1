package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fleetdeck/fleetdeck/internal/cli"
)

func cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and manage the claim selection",
	}
	cmd.AddCommand(cartListCmd())
	cmd.AddCommand(cartRemoveCmd())
	cmd.AddCommand(cartClearCmd())
	return cmd
}

func cartListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List selected packages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openCart(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			items, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println(cli.FormatInfo("selection is empty"))
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Identity", "Package", "Name", "Devices", "Added"})
			for _, item := range items {
				t.AppendRow(table.Row{
					item.Identity,
					item.PackageID,
					item.DisplayName,
					item.DeviceCount,
					item.AddedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
}

func cartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <identity>",
		Short: "Remove one selected package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openCart(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("removed " + args[0]))
			return nil
		},
	}
}

func cartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the selection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openCart(ctx)
			if err != nil {
				return err
			}
			defer closeStore(store)

			if err := store.Clear(ctx); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("selection cleared"))
			return nil
		},
	}
}
