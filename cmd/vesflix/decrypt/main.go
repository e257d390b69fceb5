package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"vesflix/internal/bootstrap"
	"vesflix/internal/config"
	"vesflix/internal/library"
	vlog "vesflix/internal/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("VESFLIX_CONFIG"), "path to YAML config file")
	flag.Parse()

	if flag.NArg() != 2 {
		log.Fatal("Usage: decrypt <video-id> <output-file>")
	}
	videoID := flag.Arg(0)
	outputPath := flag.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	vlog.Configure(vlog.Config{Level: cfg.Log.Level, Service: "vesflix-decrypt"})

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

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	output, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		log.Fatalf("Error creating output file: %v", err)
	}

	lib := library.New(meta, blobs, bootstrap.Cipher(), vlog.WithComponent("decrypt"))

	fmt.Printf("Decrypting video %s...\n", videoID)
	start := time.Now()
	written, err := lib.Export(ctx, videoID, output)
	if cerr := output.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outputPath)
		log.Fatalf("Decryption failed: %v", err)
	}

	duration := time.Since(start)
	fmt.Printf("\nDecryption completed in %v\n", duration)
	fmt.Printf("Bytes written: %d\n", written)
	if duration > 0 {
		fmt.Printf("Processing Rate: %.2f MB/s\n", float64(written)/(1024*1024*duration.Seconds()))
	}
	fmt.Printf("Saved to: %s\n", outputPath)
}
