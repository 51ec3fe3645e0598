// Command shopctl runs operator tasks against the storefront database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const usage = `usage: shopctl <command> [flags]

commands:
  migrate up|down|version       apply, roll back one step, or show the schema version
  create-user --email --name --role
                                create a user and print an API token
  backfill-voucher-expiry       set expires_at on grants issued without one`

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx := logger.WithContext(context.Background())

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "migrate":
		err = runMigrate(logger, cfg, args)
	case "create-user":
		err = runCreateUser(ctx, cfg, args)
	case "backfill-voucher-expiry":
		err = runBackfill(ctx, logger, cfg)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func runMigrate(logger zerolog.Logger, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: shopctl migrate up|down|version")
	}

	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://migrations"
	}

	m, err := migrate.New(source, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Msg("no pending migrations")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		logger.Info().Msg("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Msg("no migrations to roll back")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info().Msg("rolled back one migration")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info().Msg("no migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")

	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
	return nil
}

func runCreateUser(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name")
	role := fs.String("role", models.RoleCustomer, "customer, clerk or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *name == "" {
		return errors.New("--email and --name are required")
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	s := store.New(db)
	user, err := s.CreateUser(ctx, *email, *name, *role)
	if err != nil {
		return err
	}
	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user created")
	fmt.Println(token)
	return nil
}

func runBackfill(ctx context.Context, logger zerolog.Logger, cfg *config.Config) error {
	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := store.New(db).BackfillGrantExpiry(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int64("updated", n).Msg("voucher expiry backfilled")
	return nil
}
