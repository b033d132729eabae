package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newAddressesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addresses",
		Short: "Manage shielded identities of the account",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored identities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBook(cmd, func(a *app) error {
				entries, err := a.book.Entries(cmd.Context(), a.cfg.Account)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entries)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Derive and store a new identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBook(cmd, func(a *app) error {
				entry, err := a.book.Create(cmd.Context(), a.cfg.Account)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entry)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <identity>",
		Short: "Remove a stored identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid identity: %s", args[0])
			}
			return withBook(cmd, func(a *app) error {
				return a.book.Remove(cmd.Context(), a.cfg.Account, common.HexToAddress(args[0]))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every stored identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBook(cmd, func(a *app) error {
				return a.book.Clear(cmd.Context(), a.cfg.Account)
			})
		},
	})

	return cmd
}

func withBook(cmd *cobra.Command, fn func(*app) error) error {
	ctx, stop := signalContext()
	defer stop()
	cmd.SetContext(ctx)

	a, err := newApp(ctx, cmd, appNeeds{store: true})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
