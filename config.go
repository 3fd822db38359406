package main

import (
	"os"

	"GoWikiRAG/app/configs"
	"GoWikiRAG/app/embedder"
	"GoWikiRAG/app/feed"
	"GoWikiRAG/app/storage"
	"GoWikiRAG/app/vectors"
)

const defaultConfigPath = "configs.yml"

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

func getDB(cfg *configs.Config) storage.Interface {
	return storage.NewSQLiteStorage(cfg.Storage.Path)
}

func getEmbedder(cfg *configs.Config) *embedder.Client {
	return embedder.NewClient(cfg.Embedding)
}

func getIndex(cfg *configs.Config) (vectors.Index, error) {
	return vectors.NewQdrantIndex(cfg.Qdrant, cfg.Embedding.Dimension)
}

func getFeed(cfg *configs.Config) feed.Interface {
	return feed.NewClient(cfg.Wiki)
}
