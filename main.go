package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sunu-agro/leafscan/config"
	"github.com/sunu-agro/leafscan/logging"
	"github.com/sunu-agro/leafscan/onnx"
	"github.com/sunu-agro/leafscan/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.C()
	_, logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()
	slog.Info("Starting leafscan", slog.String("model", cfg.ModelPath()), slog.Bool("lazy_load", cfg.LazyLoad))

	predictor, loader, err := server.Init(cfg)
	if err != nil {
		slog.Error("Failed to initialize server", slog.String("error", err.Error()))
		return 1
	}
	defer onnx.Destroy()
	defer func() {
		if err := loader.Close(); err != nil {
			slog.Error("Failed to release model", slog.String("error", err.Error()))
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	r := server.NewRouter(server.NewHandler(predictor, cfg.MaxUploadBytes))

	if err := server.Run(ctx, cfg.Addr(), r); err != nil {
		slog.Error("Server error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
