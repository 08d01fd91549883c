package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stocksense/pantry/internal/cli"
)

func receiptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List ingested receipts and their extraction status",
		RunE:  runReceipts,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of receipts to show")
	return cmd
}

func runReceipts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	receipts, err := store.ListReceipts(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}

	fmt.Println(cli.FormatTitle("Receipts"))
	fmt.Println(cli.RenderReceiptsTable(receipts))
	return nil
}
