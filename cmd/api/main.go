package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"researchdesk/internal/config"
	"researchdesk/internal/container"
	"researchdesk/ui"
)

func main() {
	// .env is optional; real deployments set environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("failed to create container: %v", err)
	}
	if err := c.InitWithDatabase(context.Background(), db); err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}
	defer c.Close()

	server := ui.NewServer(cfg.Server.GinMode, c.Logger)
	server.AddResearchRoutes(c.Scheduler, c.Finalizer, c.ResearchRepo)

	if err := server.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
