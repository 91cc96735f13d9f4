package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"cargo-route-service/internal/adapters/repositories"
	"cargo-route-service/internal/platform/db"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const usage = "usage: dbtool <migrate|seed|version>"

// dbtool prepares a Postgres database: schema migrations and network seed data.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SEED_PATH", "data/seeds/network.json")

	databaseURL := v.GetString("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	switch os.Args[1] {
	case "migrate":
		err = migrate(ctx, sqlDB)
	case "seed":
		err = seed(ctx, sqlDB, v.GetString("SEED_PATH"))
	case "version":
		err = version(ctx, sqlDB)
	default:
		err = fmt.Errorf("unknown command %q; %s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func migrate(ctx context.Context, sqlDB *sql.DB) error {
	log.Println("Applying migrations...")
	if err := repositories.Migrate(ctx, sqlDB); err != nil {
		return err
	}
	log.Println("Schema ready.")
	return nil
}

func seed(ctx context.Context, sqlDB *sql.DB, seedPath string) error {
	if err := migrate(ctx, sqlDB); err != nil {
		return err
	}

	s, err := repositories.LoadSeed(seedPath)
	if err != nil {
		return err
	}

	log.Printf("Seeding %d deposits and %d carriers...", len(s.Deposits), len(s.Carriers))
	if err := repositories.NewPostgresStore(sqlDB).Seed(ctx, s); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Println("Seeding complete.")
	return nil
}

func version(ctx context.Context, sqlDB *sql.DB) error {
	v, err := repositories.MigrationVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	log.Printf("schema version: %d", v)
	return nil
}
