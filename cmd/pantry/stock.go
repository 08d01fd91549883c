package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stocksense/pantry/internal/cli"
	"github.com/stocksense/pantry/internal/model"
)

func stockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Record explicit stock overrides",
		Long: `Mark a product as out of stock or back in stock. An OUT marker
overrides any velocity-computed status until the product is bought again
or marked back in.`,
	}

	cmd.AddCommand(stockMarkCmd("out", model.MarkerOut,
		"Mark a product as out of stock"))
	cmd.AddCommand(stockMarkCmd("in", model.MarkerInStock,
		"Mark a product as back in stock"))
	return cmd
}

func stockMarkCmd(use string, marker model.StockMarker, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <product name>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.Join(args, " ")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			product, err := store.GetProductByRawName(ctx, name)
			if err != nil {
				return fmt.Errorf("product %q not found in the ledger", name)
			}

			if err := store.SetStockMarker(ctx, product.ID, marker); err != nil {
				return fmt.Errorf("failed to set stock marker: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"%s marked %s", product.DisplayName(), marker)))
			return nil
		},
	}
}
