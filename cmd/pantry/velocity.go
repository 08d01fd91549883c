package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stocksense/pantry/internal/cli"
	"github.com/stocksense/pantry/internal/velocity"
)

func velocityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Show per-product buying rhythm and reorder status",
		Long: `Compute purchase velocity for every product in the ledger and flag
what is likely running low based on your own buying intervals.`,
		RunE: runVelocity,
	}

	cmd.Flags().Bool("low", false, "Only show products that are low or out")
	return cmd
}

func runVelocity(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	lowOnly, _ := cmd.Flags().GetBool("low")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	snapshot, err := store.GetProductHistories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load purchase histories: %w", err)
	}

	engine := velocity.NewEngine()
	if lowOnly {
		fmt.Println(cli.RenderShoppingList(engine.ComputeLowOrOut(snapshot)))
		return nil
	}

	fmt.Println(cli.FormatTitle("Purchase velocity"))
	fmt.Println(cli.RenderVelocityTable(engine.Compute(snapshot)))
	return nil
}
