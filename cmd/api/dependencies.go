package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/startup"
)

// fnDependency adapts a pair of start/stop funcs to startup.StartupDependency.
type fnDependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *fnDependency) GetName() string     { return d.name }
func (d *fnDependency) DependsOn() []string { return d.dependsOn }

func (d *fnDependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *fnDependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func (a *app) databaseDependency() startup.StartupDependency {
	return &fnDependency{
		name: "database",
		start: func(ctx context.Context) error {
			return a.db.PingContext(ctx)
		},
		stop: func(ctx context.Context) error {
			return a.db.Close()
		},
	}
}

func (a *app) migrationDependency() startup.StartupDependency {
	return &fnDependency{
		name:      "migrations",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			instance, ok := a.db.(*database.DatabaseInstance)
			if !ok {
				return fmt.Errorf("database instance does not support migrations")
			}
			driver, err := migratepg.WithInstance(instance.DB.DB, &migratepg.Config{})
			if err != nil {
				return fmt.Errorf("failed to create migration driver: %w", err)
			}
			ms := database.NewMigrationService(a.logger, &database.MigrationConfig{
				MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
				Version:             uint(a.cfg.DatabaseMigrationVersion),
				Force:               a.cfg.DatabaseMigrationForce,
				AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(a.cfg.DatabaseName, driver)
		},
	}
}

func (a *app) redisDependency() startup.StartupDependency {
	return &fnDependency{
		name: "redis",
		start: func(ctx context.Context) error {
			return a.redis.Ping(ctx)
		},
		stop: func(ctx context.Context) error {
			return a.redis.Close()
		},
	}
}

func (a *app) kafkaDependency() startup.StartupDependency {
	return &fnDependency{
		name:      "kafka",
		dependsOn: []string{"database", "redis"},
		start: func(ctx context.Context) error {
			if a.consumer == nil {
				return nil
			}
			return a.consumer.Start(ctx, a.consumerHandler)
		},
		stop: func(ctx context.Context) error {
			// Flush pending debounced saves before the producer goes away:
			// the saver publishes a lifecycle event per save.
			a.saver.Close()
			if a.consumer != nil {
				if err := a.consumer.Stop(); err != nil {
					return err
				}
			}
			return a.producer.Close()
		},
	}
}

func (a *app) httpDependency() startup.StartupDependency {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           a.echo,
		ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	return &fnDependency{
		name:      "http",
		dependsOn: []string{"database", "migrations", "redis", "kafka"},
		start: func(ctx context.Context) error {
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					a.logger.WithError(err).Error("http server stopped unexpectedly")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	}
}
