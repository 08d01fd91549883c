package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stocksense/pantry/internal/cli"
	"github.com/stocksense/pantry/internal/extract"
	"github.com/stocksense/pantry/internal/ingest"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files or directories]",
		Short: "Ingest receipt documents into the purchase ledger",
		Long: `Ingest one or more receipt documents. HTML files are treated as email
receipts; image files go through the configured vision model, or through
local OCR with --ocr. Directories are ingested recursively.

Each document is processed exactly once; re-running on the same files is
safe and skips anything already ingested.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("ocr", false, "Use local OCR instead of the vision model for images")
	cmd.Flags().String("retailer", "delivery", "HTML retailer profile (delivery, warehouse)")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	useOCR, _ := cmd.Flags().GetBool("ocr")
	retailerName, _ := cmd.Flags().GetString("retailer")

	retailer, err := retailerProfile(retailerName)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(os.Stdout)
	ctx := handler.HandleInterrupts(cmd.Context())

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	pipeline, err := initPipeline()
	if err != nil {
		return err
	}

	opts := []ingest.Option{}
	classifier, err := initClassifier()
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}
	if classifier != nil {
		defer classifier.Close()
		opts = append(opts, ingest.WithClassifier(classifier))
	}
	reconciler := ingest.NewReconciler(store, pipeline, nil, opts...)

	paths, err := collectDocuments(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no receipt documents found")
	}

	bar := cli.NewProgressBar(os.Stdout, len(paths), "Ingesting receipts...")
	var stored, skipped, failed int

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		doc, err := buildDocument(path, retailer, useOCR)
		if err != nil {
			failed++
			fmt.Println(cli.FormatWarning(fmt.Sprintf("%s: %v", path, err)))
			_ = bar.Add(1)
			continue
		}

		result, err := reconciler.Ingest(ctx, doc)
		switch {
		case err != nil:
			failed++
			fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", path, err)))
		case result.Duplicate:
			skipped++
		default:
			stored += result.ItemsStored
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()

	if handler.WasInterrupted() {
		return nil
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Ingested %d items (%d duplicates skipped, %d failures)", stored, skipped, failed)))
	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

func retailerProfile(name string) (extract.RetailerProfile, error) {
	switch strings.ToLower(name) {
	case "delivery":
		return extract.DeliveryProfile(), nil
	case "warehouse":
		return extract.WarehouseProfile(), nil
	default:
		return extract.RetailerProfile{}, fmt.Errorf("unknown retailer profile: %s", name)
	}
}

// collectDocuments expands the argument list into a sorted list of
// ingestible files.
func collectDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && sourceKindForFile(path, false) != "" {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func sourceKindForFile(path string, useOCR bool) extract.SourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".eml":
		return extract.SourceHTML
	case ".jpg", ".jpeg", ".png":
		if useOCR {
			return extract.SourceImageOCR
		}
		return extract.SourceImageVision
	default:
		return ""
	}
}

func buildDocument(path string, retailer extract.RetailerProfile, useOCR bool) (ingest.Document, error) {
	kind := sourceKindForFile(path, useOCR)
	if kind == "" {
		return ingest.Document{}, errors.New("unsupported file type")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Document{}, fmt.Errorf("read failed: %w", err)
	}

	source := extract.Source{Kind: kind}
	if kind == extract.SourceHTML {
		source.Retailer = retailer
		source.HTML = string(data)
	} else {
		source.Image = data
	}

	doc := ingest.Document{Source: source}
	if info, err := os.Stat(path); err == nil {
		modTime := info.ModTime().UTC().Truncate(24 * time.Hour)
		doc.FallbackDate = &modTime
	}
	return doc, nil
}
