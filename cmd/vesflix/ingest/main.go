package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vesflix/internal/bootstrap"
	"vesflix/internal/config"
	"vesflix/internal/library"
	vlog "vesflix/internal/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("VESFLIX_CONFIG"), "path to YAML config file")
	id := flag.String("id", "", "video id (generated when empty)")
	title := flag.String("title", "", "video title (defaults to the file name)")
	thumbnail := flag.String("thumbnail", "", "thumbnail path to record")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: ingest [-id id] [-title title] [-thumbnail path] <video-file>")
	}
	inputPath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	vlog.Configure(vlog.Config{Level: cfg.Log.Level, Service: "vesflix-ingest"})

	ctx := context.Background()
	meta, err := bootstrap.Metadata(ctx, cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to open metadata store: %v", err)
	}
	defer meta.Close()

	blobs, err := bootstrap.BlobStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	input, err := os.Open(inputPath)
	if err != nil {
		log.Fatalf("Error opening input file: %v", err)
	}
	defer input.Close()

	name := *title
	if name == "" {
		base := filepath.Base(inputPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	lib := library.New(meta, blobs, bootstrap.Cipher(), vlog.WithComponent("ingest"))

	fmt.Printf("Encrypting %s...\n", inputPath)
	start := time.Now()
	rec, err := lib.Ingest(ctx, library.IngestInput{
		ID:            *id,
		Title:         name,
		ThumbnailPath: *thumbnail,
		Source:        input,
	})
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}

	duration := time.Since(start)
	fmt.Printf("\nIngest completed in %v\n", duration)
	if info, err := input.Stat(); err == nil && duration > 0 {
		fmt.Printf("Processing Rate: %.2f MB/s\n", float64(info.Size())/(1024*1024*duration.Seconds()))
	}
	fmt.Printf("Video ID: %s\n", rec.ID)
	fmt.Printf("Stored at: %s\n", rec.StoragePath)
}
