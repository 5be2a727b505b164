package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/platform/config"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/logger"
)

const usage = `usage: migrate [flags] <up|down|drop|version|steps N|force N>`

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		dsnOverride   = flag.String("dsn", "", "postgres connection string; takes precedence over the config file")
		migrationsDir = flag.String("dir", "assets/migrations", "directory containing migration files")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		log.Fatalf("%v\n%s", err, usage)
	}

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(cfg.Logging)
	defer func() { _ = logg.Sync() }()

	dsn := *dsnOverride
	if dsn == "" {
		if cfg.Storage.Driver != config.StoragePostgres {
			logg.Fatal("storage driver is not postgres; pass -dsn to migrate anyway",
				zap.String("driver", cfg.Storage.Driver))
		}
		dsn = cfg.Database.DSN()
	}

	if err := runMigration(cmd, *migrationsDir, dsn, logg); err != nil {
		logg.Fatal("migration failed", zap.String("action", cmd.action), zap.Error(err))
	}
	logg.Info("migration completed", zap.String("action", cmd.action))
}

type command struct {
	action string
	n      int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{action: "up"}, nil
	}

	cmd := command{action: args[0]}
	switch cmd.action {
	case "up", "down", "drop", "version":
		if len(args) > 1 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.action)
		}
	case "steps", "force":
		if len(args) != 2 {
			return command{}, fmt.Errorf("%s requires exactly one integer argument", cmd.action)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: invalid argument %q", cmd.action, args[1])
		}
		if cmd.action == "steps" && n == 0 {
			return command{}, errors.New("steps: argument must not be zero")
		}
		cmd.n = n
	default:
		return command{}, fmt.Errorf("unsupported action %q", cmd.action)
	}
	return cmd, nil
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func runMigration(cmd command, dir, dsn string, logg *zap.Logger) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch cmd.action {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		return ignoreNoChange(m.Down())
	case "steps":
		return ignoreNoChange(m.Steps(cmd.n))
	case "force":
		return m.Force(cmd.n)
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logg.Info("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		logg.Info("current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}
	return fmt.Errorf("unsupported action %q", cmd.action)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
