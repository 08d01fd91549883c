package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stocksense/pantry/internal/cli"
	"github.com/stocksense/pantry/internal/inventory"
)

func inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Estimate what is likely still on hand for cooking",
		Long: `Estimate the usable pantry contents from purchase recency, using the
lenient cooking shelf-life tuning rather than the reorder one.`,
		RunE: runInventory,
	}

	cmd.Flags().Int("frequent", 0, "Also list the top N most frequently bought products")
	return cmd
}

func runInventory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	frequent, _ := cmd.Flags().GetInt("frequent")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	snapshot, err := store.GetProductHistories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load purchase histories: %w", err)
	}

	estimator := inventory.NewEstimator()

	fmt.Println(cli.FormatTitle("Likely on hand"))
	fmt.Println(cli.RenderInventory(estimator.Estimate(snapshot)))

	if frequent > 0 {
		fmt.Println(cli.FormatTitle("Staples"))
		for _, name := range estimator.FrequentProducts(snapshot, frequent) {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}
