package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stocksense/pantry/internal/cli"
	"github.com/stocksense/pantry/internal/model"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify products that are still in the Unknown category",
		Long: `Run the configured language model over every product that ingestion
could not classify, assigning canonical names and categories. Products
that still fail stay Unknown and keep their raw names.`,
		RunE: runClassify,
	}
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	classifier, err := initClassifier()
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}
	if classifier == nil {
		return fmt.Errorf("no classifier provider configured; set classifier.provider in config")
	}
	defer classifier.Close()

	products, err := store.GetUnclassifiedProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unclassified products: %w", err)
	}
	if len(products) == 0 {
		fmt.Println(cli.FormatSuccess("All products are classified."))
		return nil
	}

	bar := cli.NewProgressBar(nil, len(products), "Classifying products...")
	classified := 0
	for _, product := range products {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := classifier.Classify(ctx, product.RawName)
		_ = bar.Add(1)
		if err != nil || result.Category == model.CategoryUnknown {
			continue
		}

		if err := store.UpdateProductClassification(ctx, product.ID, result.CleanName, result.Category); err != nil {
			return fmt.Errorf("failed to save classification for %q: %w", product.RawName, err)
		}
		classified++
	}
	_ = bar.Finish()
	fmt.Println()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Classified %d of %d products", classified, len(products))))
	return nil
}
