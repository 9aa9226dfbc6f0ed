// Command migrate manages the ticketing schema.
//
//	migrate up | down | version | to <n> | seed
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-eventgrid/internal/config"
	"ms-eventgrid/internal/database/migrations"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up | down | version | to <version> | seed")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	log := logger.New(os.Stdout)
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: cfg.Database.MigrationsDir}, log)
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("MIGRATE", err.Error())
		}
	}()

	switch os.Args[1] {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		if len(os.Args) < 3 {
			usage()
		}
		var version uint64
		version, err = strconv.ParseUint(os.Args[2], 10, 32)
		if err == nil {
			err = runner.MigrateTo(uint(version))
		}
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = runner.Version()
		if err == nil {
			log.Info("MIGRATE", fmt.Sprintf("Schema version %d (dirty: %t)", version, dirty))
		}
	case "seed":
		err = seed(context.Background(), bunDB)
	default:
		usage()
	}

	if err != nil {
		log.Error("MIGRATE", fmt.Sprintf("%s failed: %v", os.Args[1], err))
		_ = runner.Close()
		os.Exit(1)
	}
	log.Info("MIGRATE", fmt.Sprintf("✅ %s done", os.Args[1]))
}

// seed inserts one organization with a paid and a free event for local testing.
func seed(ctx context.Context, db *bun.DB) error {
	now := time.Now().UTC()
	org := models.Organization{
		ID:        uuid.NewString(),
		Name:      "Dhaka Live",
		Email:     "events@dhakalive.test",
		Phone:     "+8801700000000",
		CreatedAt: now,
	}
	start := now.AddDate(0, 1, 0)
	events := []models.Event{
		{
			ID:             uuid.NewString(),
			Title:          "Summer Fest",
			Category:       "CONCERT",
			Description:    "Annual summer music festival.",
			TicketPrice:    decimal.NewNullDecimal(decimal.RequireFromString("1500.00")),
			StartTime:      start,
			EndTime:        start.Add(6 * time.Hour),
			MaxTickets:     500,
			IsPublic:       true,
			OrganizationID: org.ID,
			CreatedAt:      now,
		},
		{
			ID:             uuid.NewString(),
			Title:          "Open Mic",
			Category:       "COMEDY",
			StartTime:      start.AddDate(0, 0, 7),
			EndTime:        start.AddDate(0, 0, 7).Add(2 * time.Hour),
			MaxTickets:     40,
			IsPublic:       true,
			OrganizationID: org.ID,
			CreatedAt:      now,
		},
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&org).Exec(ctx); err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}
		if _, err := tx.NewInsert().Model(&events).Exec(ctx); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
}
