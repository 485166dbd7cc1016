package main

import (
	"context"
	"log"
	"os"

	"ai-shopping-gateway/internal/config"
	"ai-shopping-gateway/internal/db"
	"ai-shopping-gateway/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatalf("migrate apply: %v", err)
	}

	logger.Println("migrations applied")
}
