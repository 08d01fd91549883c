package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/stocksense/pantry/internal/config"
	"github.com/stocksense/pantry/internal/extract"
	"github.com/stocksense/pantry/internal/llm"
	"github.com/stocksense/pantry/internal/ocr"
	"github.com/stocksense/pantry/internal/service"
	"github.com/stocksense/pantry/internal/storage"
	"github.com/stocksense/pantry/internal/vision"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// initClassifier builds the product classifier when one is configured.
// A nil return with nil error means classification is simply off.
func initClassifier() (*llm.Classifier, error) {
	cfg := config.LoadClassifierConfig()
	if cfg.Provider == "" {
		slog.Debug("no classifier provider configured, raw names will be kept")
		return nil, nil
	}
	return llm.NewClassifier(cfg, slog.Default())
}

// initPipeline builds the extraction pipeline, attaching the vision
// capability when an endpoint is configured.
func initPipeline() (*extract.Pipeline, error) {
	pipelineCfg := extract.Config{
		Logger:      slog.Default(),
		CallTimeout: config.ExtractionTimeout(),
	}

	visionCfg := config.LoadVisionConfig()
	if visionCfg.BaseURL != "" {
		client, err := vision.NewClient(visionCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		pipelineCfg.Vision = client
	}

	if viper.GetBool("ocr.enabled") {
		pipelineCfg.OCR = ocr.NewTesseractReader(viper.GetString("ocr.tesseract_path"))
	}

	return extract.NewPipeline(pipelineCfg), nil
}
