package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"worshipScheduling/internal/auth"
	"worshipScheduling/internal/config"
	"worshipScheduling/internal/db"
	"worshipScheduling/internal/health"
	"worshipScheduling/internal/httpapi"
	"worshipScheduling/internal/logging"
	"worshipScheduling/internal/maintenance"
	"worshipScheduling/models"
	"worshipScheduling/repository"
)

// env is what every command needs: configuration, a logger and the open pool.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	driver string
	sql    *sql.DB
}

func (e *env) Close() {
	if e.sql == nil {
		return
	}
	if err := e.sql.Close(); err != nil {
		e.logger.Error("close db", "err", err)
	}
}

func (e *env) orm() (*gorm.DB, error) {
	return db.NewORM(e.sql, e.driver, logging.ORM(e.logger))
}

// setup loads configuration and connects to the database. migrate controls whether
// pending migrations are applied.
func setup(cmd *cli.Command, migrate bool) (*env, error) {
	load := config.Load
	if cmd.Bool("dev") {
		load = config.LoadWithDefaults
	}
	cfg, err := load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	logger.Debug("configuration loaded", "config", cfg.String())

	driver, dsn := db.DSN(cfg.Database)
	open := db.Connect
	if migrate {
		open = db.Open
	}
	d, err := open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == db.DriverMySQL && cfg.Database.MaxOpenConns > 0 {
		d.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		d.SetMaxIdleConns(cfg.Database.MaxOpenConns)
	}
	return &env{cfg: cfg, logger: logger, driver: driver, sql: d}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	orm, err := e.orm()
	if err != nil {
		return err
	}
	srv := httpapi.New(e.cfg, httpapi.Deps{
		Users:     repository.NewUserRepository(orm),
		Schedules: repository.NewScheduleRepository(orm),
		DB:        e.sql,
		Logger:    e.logger,
	})
	addr, shutdownHTTP, err := httpapi.Start(srv, e.cfg.HTTP.Address, e.logger)
	if err != nil {
		return fmt.Errorf("start http: %w", err)
	}
	e.logger.Info("HTTP server listening", "addr", addr, "driver", e.driver)

	shutdownGRPC := func(context.Context) error { return nil }
	if e.cfg.GRPC.Address != "" {
		gaddr, stop, err := health.Start(e.cfg.GRPC.Address, e.sql, e.cfg.GRPC.HealthInterval.Duration, e.logger.WithPrefix("health"))
		if err != nil {
			return fmt.Errorf("start grpc health: %w", err)
		}
		shutdownGRPC = stop
		e.logger.Info("gRPC health server listening", "addr", gaddr)
	}

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		e.logger.Info("shutting down", "signal", s.String())
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownHTTP(sctx); err != nil {
		e.logger.Error("http shutdown", "err", err)
	}
	if err := shutdownGRPC(sctx); err != nil {
		e.logger.Error("grpc shutdown", "err", err)
	}
	return nil
}

func migrateUp(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()
	versions, err := db.AppliedVersions(e.sql, e.driver)
	if err != nil {
		return err
	}
	e.logger.Info("schema up to date", "applied", versions)
	return nil
}

func migrateDown(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()
	v, err := db.RollbackLast(e.sql, e.driver)
	if err != nil {
		return err
	}
	if v == 0 {
		e.logger.Info("nothing to roll back")
		return nil
	}
	e.logger.Info("rolled back migration", "version", v)
	return nil
}

func seed(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()
	orm, err := e.orm()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(e.cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}
	admin := models.NewAdmin("Administrador", "admin")
	admin.Password = hash
	created, err := repository.NewUserRepository(orm).EnsureAdmin(ctx, admin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		e.logger.Info("admin user created", "username", admin.Username, "id", admin.ID)
	} else {
		e.logger.Info("admin user already exists", "username", admin.Username, "id", admin.ID)
	}
	return nil
}

func cleanup(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()
	c := maintenance.NewCleaner(e.sql, e.driver)

	var orphans []maintenance.Orphan
	if cmd.Bool("dry-run") {
		orphans, err = c.FindOrphans(ctx)
	} else {
		orphans, err = c.DeleteOrphans(ctx)
	}
	if err != nil {
		return err
	}
	for _, o := range orphans {
		fmt.Fprintln(cmd.Root().Writer, o.String())
	}
	e.logger.Info("orphan cleanup finished", "rows", len(orphans), "dry_run", cmd.Bool("dry-run"))
	return nil
}

func ping(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := e.sql.PingContext(pctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	versions, err := db.AppliedVersions(e.sql, e.driver)
	if err != nil {
		return err
	}
	w := cmd.Root().Writer
	fmt.Fprintf(w, "driver:     %s\n", e.driver)
	fmt.Fprintf(w, "latency:    %s\n", time.Since(start).Round(time.Microsecond))
	fmt.Fprintf(w, "migrations: %v\n", versions)
	fmt.Fprintf(w, "pool:       %+v\n", e.sql.Stats())
	return nil
}
