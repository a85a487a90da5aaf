// Command seed fills the database with generated questions, answers, votes
// and saves.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"devflow/internal/bootstrap"
	"devflow/internal/config"
	"devflow/internal/middleware"
	"devflow/internal/seed"
)

func main() {
	preset := flag.String("preset", "small", "Bundled profile to apply (small, demo)")
	profilePath := flag.String("profile", "", "Path to a YAML profile; overrides -preset")
	clean := flag.Bool("clean", false, "Delete existing content before seeding")
	flag.Parse()

	profile, err := loadProfile(*profilePath, *preset)
	if err != nil {
		log.Fatalf("Failed to load seed profile: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *clean {
		if err := seed.Clear(ctx, rt.DB); err != nil {
			middleware.Logger.Error("cleanup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if _, err := seed.NewSeeder(rt.DB, profile).Run(ctx); err != nil {
		middleware.Logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadProfile(path, preset string) (*seed.Profile, error) {
	if path != "" {
		return seed.LoadProfile(path)
	}
	return seed.Preset(preset)
}
