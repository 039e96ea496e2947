package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	apperrors "polcam/internal/errors"
	"polcam/internal/logger"
	"polcam/internal/models"
	"polcam/pkg/config"
	"polcam/pkg/reconstruction"
)

func main() {
	// Parse command line arguments
	mainFrame := flag.String("main", "", "Raw frame with the 0/45/90 degree quadrants")
	secondFrame := flag.String("second", "", "Optional second frame; its bottom-left quadrant is the I_45_90 proxy (selects dual mode)")
	mode := flag.String("mode", "", "Force single or dual mode (default: dual iff -second is given)")
	batchDir := flag.String("batch", "", "Process every image in this directory in single-frame mode")
	configPath := flag.String("config", "polcam.yaml", "Path to YAML config file")
	initConfig := flag.Bool("init-config", false, "Write a default config file to -config and exit")
	outputDir := flag.String("out", "", "Output root directory (overrides output.dir)")
	stride := flag.Int("stride", 0, "Ellipse sampling stride in pixels (overrides processing.ellipseStride)")
	workers := flag.Int("workers", 0, "Concurrent runs in batch mode (overrides processing.numWorkers)")
	extractImages := flag.Bool("extract-images", false, "Also save every descriptor at one pixel per sample")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *mainFrame == "" && *batchDir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *mainFrame != "" && *batchDir != "" {
		log.Fatalf("-main and -batch are mutually exclusive")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *stride != 0 {
		cfg.Processing.EllipseStride = *stride
	}
	if *workers != 0 {
		cfg.Processing.NumWorkers = *workers
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := cfg.Logging.Level
	if cfg.Output.Verbose {
		level = "debug"
	}
	logger.Configure(level, cfg.Logging.Format)

	fmt.Println("================================")
	fmt.Println("POLARIZATION CAMERA TOOLBOX")
	fmt.Println("Stokes parameters, polarization descriptors and ellipse fields")
	fmt.Println("================================")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()

	if *batchDir != "" {
		jobs, err := reconstruction.BatchJobs(*batchDir, cfg.Output.Dir, cfg)
		if err != nil {
			log.Fatalf("Batch setup failed: %v", err)
		}
		for _, job := range jobs {
			job.ExtractImages = *extractImages
		}

		fmt.Printf("Processing %d frames from %s...\n", len(jobs), *batchDir)
		results := reconstruction.RunBatch(ctx, jobs, cfg.Processing.NumWorkers)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("  FAILED %s: %v\n", r.Params.MainPath, r.Err)
				continue
			}
			fmt.Printf("  ok     %s -> %s\n", r.Params.MainPath, r.Result.OutputDir)
		}
		fmt.Printf("\nBatch finished in %.2f seconds: %d ok, %d failed\n",
			time.Since(startTime).Seconds(), len(results)-failed, failed)
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	params := &reconstruction.Params{
		MainPath:      *mainFrame,
		SecondPath:    *secondFrame,
		Mode:          *mode,
		OutputDir:     cfg.Output.Dir,
		ExtractImages: *extractImages,
		Config:        cfg,
	}

	fmt.Println("Starting polarization reconstruction...")
	res, err := reconstruction.NewReconstructor(params).Process(ctx)
	if err != nil {
		if d := apperrors.DescriptorOf(err); d != "" {
			log.Fatalf("Reconstruction failed at %s: %v", d, err)
		}
		log.Fatalf("Reconstruction failed: %v", err)
	}

	fmt.Printf("\nReconstruction completed in %.2f seconds (%s mode, run %s)\n",
		time.Since(startTime).Seconds(), res.Mode, res.RunID)
	fmt.Printf("Outputs saved to: %s\n\n", res.OutputDir)

	fmt.Println("Descriptor summary:")
	fmt.Println("=======================================")
	for _, name := range res.Names {
		s := res.Stats[name]
		fmt.Printf("%-24s min %9.4f  max %9.4f  mean %9.4f\n", models.DisplayName(name), s.Min, s.Max, s.Mean)
	}
	if len(res.Ellipses) > 0 {
		fmt.Printf("\nPolarization ellipses: %d (stride %d)\n", len(res.Ellipses), cfg.Processing.EllipseStride)
	}
	for _, w := range res.Warnings {
		fmt.Printf("Warning: %v\n", w)
	}
}
