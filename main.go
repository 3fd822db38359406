package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"GoWikiRAG/app/configs"
	"GoWikiRAG/app/pipeline"
	"GoWikiRAG/app/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := configs.Load(configPath())
	if err != nil {
		log.Fatalf("❌ Error loading configuration: %v", err)
	}

	db := getDB(cfg)
	defer db.Close()

	embed := getEmbedder(cfg)
	if err = embed.VerifyDimension(ctx); err != nil {
		log.Fatalf("❌ Embedding model mismatch: %v", err)
	}

	index, err := getIndex(cfg)
	if err != nil {
		log.Fatalf("❌ Error connecting to qdrant: %v", err)
	}
	defer index.Close()

	if err = index.EnsureCollection(ctx); err != nil {
		log.Fatalf("❌ Error preparing collection: %v", err)
	}

	p := pipeline.New(getFeed(cfg), db, index, embed, pipeline.Config{
		WikiBaseURL:    cfg.Wiki.BaseURL,
		TopK:           cfg.Retrieval.TopK,
		HistorySize:    cfg.Retrieval.HistorySize,
		DedupThreshold: cfg.Dedup.Threshold,
		DedupScanK:     cfg.Dedup.ScanK,
	})

	srv := server.New(cfg.Server, p, db, index)
	if err = srv.Run(ctx); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
	log.Println("✅ Shutdown complete")
}
