package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sempower/internal"
	"sempower/internal/api"
	"sempower/internal/config"
	"sempower/internal/container"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		internal.DefaultLogger.Error("load config: %v", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.GinMode)

	c, err := container.New(cfg)
	if err != nil {
		internal.DefaultLogger.Error("init container: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.NewAPIServer(api.ServerOptions{}).Run(ctx, ":"+cfg.Server.Port); err != nil {
		c.Logger.Error("server failed: %v", err)
		os.Exit(1)
	}
}
