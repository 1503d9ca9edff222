package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/gomarketplace_cart/config"
	"github.com/Gunvolt24/gomarketplace_cart/internal/app"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.Bootstrap(ctx, &cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer cleanup()

	if err := a.Run(ctx); err != nil {
		a.Logger.Errorf(ctx, "run: %v", err)
	}
}
