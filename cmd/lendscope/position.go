package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lendingScope/internal/refresh"
)

func newPositionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "position",
		Short: "Fetch every asset once and print the position",
		RunE:  runPosition,
	}
}

func runPosition(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd, appNeeds{chain: true})
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.coordinator.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if outcome != refresh.OutcomeApplied {
		return fmt.Errorf("refresh %s", outcome)
	}
	return printJSON(cmd.OutOrStdout(), a.coordinator.Snapshot())
}
