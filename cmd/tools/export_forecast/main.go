package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/soltixdb/enrollwatch/internal/config"
	"github.com/soltixdb/enrollwatch/internal/logging"
	"github.com/soltixdb/enrollwatch/internal/services"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	district := flag.String("district", "", "District to forecast")
	format := flag.String("format", "", "Export format (csv, xlsx); empty uses the configured default")
	outDir := flag.String("output", "", "Output directory (overrides export.dir)")
	all := flag.Bool("all", false, "Export every forecastable district")

	flag.Parse()

	if *district == "" && !*all {
		log.Fatal("Error: -district or -all is required")
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("Error loading env file: %v\n", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}
	if *outDir != "" {
		cfg.Export.Dir = *outDir
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Error creating output directory: %v\n", err)
	}

	// The service logs stay quiet unless something goes wrong
	logger := logging.NewWithWriter(os.Stderr, zerolog.WarnLevel)
	logging.SetGlobal(logger)

	dashboard, publisher, err := services.NewFromConfig(cfg, logger, nil)
	if err != nil {
		log.Fatalf("Error initializing dashboard: %v\n", err)
	}
	defer func() { _ = publisher.Close() }()

	districts := []string{*district}
	if *all {
		districts = dashboard.Districts()
	}

	ctx := context.Background()
	var failed int
	for _, d := range districts {
		file, err := dashboard.Export(ctx, d, *format)
		if err != nil {
			log.Printf("Warning: %s: %v\n", d, err)
			failed++
			continue
		}

		path := cfg.GetExportPath(file.Filename)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			log.Fatalf("Error writing %s: %v\n", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}

	if failed > 0 {
		fmt.Printf("%d of %d exports failed\n", failed, len(districts))
		os.Exit(1)
	}
}
