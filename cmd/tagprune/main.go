// Command tagprune deletes tags no question references any more.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devflow/internal/bootstrap"
	"devflow/internal/config"
	"devflow/internal/middleware"
	"devflow/internal/repository"
	"devflow/internal/service"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Abort the prune after this long")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	tags := service.NewTagService(repository.NewStore(rt.DB), nil)
	removed, err := tags.PruneOrphanTags(ctx)
	if err != nil {
		middleware.Logger.Error("tag prune failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.Logger.Info("tag prune finished", slog.Int64("removed", removed))
}
