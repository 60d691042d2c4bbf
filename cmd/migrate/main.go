package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/haulbook-backend/internal/admins"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/db"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|bootstrap-admin")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory (default: embedded set; create writes to "+migrate.DefaultDir+")")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	exitOn(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if handled, err := runOffline(opts); handled {
		exitOn(ctx, logg, opts.cmd, err)
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "sql database", err)

	if opts.cmd == "bootstrap-admin" {
		exitOn(ctx, logg, opts.cmd, bootstrapAdmin(ctx, cfg, logg, dbClient))
		return
	}

	lines, err := runGoose(ctx, sqlDB, opts)
	exitOn(ctx, logg, opts.cmd, err)
	for _, line := range lines {
		fmt.Println(line)
	}
	logg.Info(logg.WithField(ctx, "migrations", len(lines)), "migrations finished")
}

// runOffline handles the commands that only touch the migrations directory.
func runOffline(opts options) (bool, error) {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return true, fmt.Errorf("missing -name for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err == nil {
			fmt.Println("created migration:", path)
		}
		return true, err
	case "validate":
		err := migrate.Validate(migrate.Source(opts.dir))
		if err == nil {
			fmt.Println("migration validation passed")
		}
		return true, err
	}
	return false, nil
}

func runGoose(ctx context.Context, sqlDB *sql.DB, opts options) ([]string, error) {
	m, err := migrate.New(sqlDB, migrate.Source(opts.dir))
	if err != nil {
		return nil, err
	}

	switch opts.cmd {
	case "up", "down", "status":
		return m.Run(ctx, opts.cmd)
	case "version":
		if opts.version == "" {
			return nil, fmt.Errorf("missing -version for version command")
		}
		return m.MigrateTo(ctx, opts.version)
	default:
		return nil, fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
}

func bootstrapAdmin(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) error {
	svc, err := admins.NewService(admins.NewRepository(dbClient.DB()), cfg.Password, logg)
	if err != nil {
		return err
	}
	created, err := svc.EnsureBootstrap(ctx, cfg.BootstrapAdmin)
	if err != nil {
		return err
	}
	if created {
		logg.Info(logg.WithField(ctx, "username", cfg.BootstrapAdmin.Username), "bootstrap admin created")
	} else {
		logg.Info(ctx, "admins already present, bootstrap skipped")
	}
	return nil
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("migrate step failed: %s", step), err)
	os.Exit(1)
}
