package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/lexorahq/provision/internal/provision/app"
)

func main() {
	// Local development convenience; production supplies real env vars.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env file")
	}

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
