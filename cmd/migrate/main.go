package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"fieldops-dispatch/internal/config"
	"fieldops-dispatch/internal/database"
	"fieldops-dispatch/pkg/logger"
)

func main() {
	seed := flag.Bool("seed", false, "insert the demo company after migrating")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, seed bool) error {
	cfg, envFileLoaded, err := config.LoadMigrate(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true})
	if !envFileLoaded {
		log.Info().Msg("no .env file found, using environment variables")
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("migration completed")

	if !seed {
		return nil
	}
	if err := database.SeedDemoCompany(ctx, db, time.Now(), log); err != nil {
		return err
	}

	counts, err := database.TableCounts(ctx, db, database.DemoCompanyID)
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	slices.Sort(tables)

	fmt.Println("\n============================================================")
	fmt.Printf("DEMO COMPANY %s\n", database.DemoCompanyID)
	fmt.Println("============================================================")
	for _, table := range tables {
		fmt.Printf("%-26s %d\n", table+":", counts[table])
	}
	fmt.Println("============================================================")
	return nil
}
