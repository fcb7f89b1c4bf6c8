// Package app wires the roomrate components with uber-fx and runs the CLI commands on them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/tigerroll/roomrate/internal/api"
	"github.com/tigerroll/roomrate/internal/brief"
	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/etl"
	"github.com/tigerroll/roomrate/internal/job"
	"github.com/tigerroll/roomrate/internal/migration"
	"github.com/tigerroll/roomrate/internal/repository"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// stopTimeout bounds the fx OnStop hooks and the HTTP drain.
const stopTimeout = 15 * time.Second

// Components are the wired collaborators a command runs on.
type Components struct {
	fx.In

	Config   *config.Config
	Store    *repository.Store
	Migrator *migration.Migrator
	Loader   *etl.Loader
	Pipeline *job.Pipeline
	Brief    *brief.Service
	Router   *gin.Engine
}

// Application holds the loaded configuration and the fx options of one process.
type Application struct {
	cfg     *config.Config
	options []fx.Option
}

// New loads the configuration and configures the logger.
func New(envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) (*Application, error) {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, dbProviderOptions), nil
}

// NewWithConfig builds an Application on an already loaded configuration.
func NewWithConfig(cfg *config.Config, dbProviderOptions []fx.Option) *Application {
	logger.Configure(cfg.System.Logging.Level, cfg.System.Logging.Format)
	logger.Infof("Log level set to: %s", cfg.System.Logging.Level)

	options := []fx.Option{fx.Supply(cfg)}
	options = append(options, dbProviderOptions...)
	options = append(options, Module)
	return &Application{cfg: cfg, options: options}
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// with starts the container, runs fn on its components and stops the container.
func (a *Application) with(ctx context.Context, fn func(ctx context.Context, c Components) error) (err error) {
	var c Components
	opts := append(append([]fx.Option{}, a.options...), fx.Invoke(func(in Components) { c = in }))
	container := fx.New(opts...)
	if err := container.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	if err := container.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if stopErr := container.Stop(stopCtx); stopErr != nil {
			logger.Errorf("Failed to stop application cleanly: %v", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in command execution: %v", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, c)
}

// Migrate applies the schema migrations.
func (a *Application) Migrate(ctx context.Context) error {
	return a.with(ctx, func(ctx context.Context, c Components) error {
		return c.Migrator.Up(ctx)
	})
}

// RunPipeline runs one forecast pipeline, migrating first when migrate is set.
func (a *Application) RunPipeline(ctx context.Context, migrate bool) (*job.RunResult, error) {
	var result *job.RunResult
	err := a.with(ctx, func(ctx context.Context, c Components) error {
		if migrate {
			if err := c.Migrator.Up(ctx); err != nil {
				return err
			}
		}
		var err error
		result, err = c.Pipeline.Run(ctx)
		return err
	})
	return result, err
}

// RunETL ingests the batch files and, when withPipeline is set, runs the pipeline on the fresh data.
func (a *Application) RunETL(ctx context.Context, withPipeline bool) (etl.Summary, *job.RunResult, error) {
	var (
		summary etl.Summary
		result  *job.RunResult
	)
	err := a.with(ctx, func(ctx context.Context, c Components) error {
		if err := c.Migrator.Up(ctx); err != nil {
			return err
		}
		var err error
		if summary, err = c.Loader.Run(ctx); err != nil {
			return err
		}
		if !withPipeline {
			return nil
		}
		result, err = c.Pipeline.Run(ctx)
		return err
	})
	return summary, result, err
}

// AddUser creates an API user with a bcrypt hashed password.
func (a *Application) AddUser(ctx context.Context, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	var user *model.User
	err := a.with(ctx, func(ctx context.Context, c Components) error {
		if err := c.Migrator.Up(ctx); err != nil {
			return err
		}
		hash, err := api.HashPassword(password)
		if err != nil {
			return err
		}
		user, err = c.Store.CreateUser(ctx, email, hash)
		return err
	})
	return user, err
}

// Brief writes the daily rate brief from the stored forecasts and mails it when req.Send is set.
func (a *Application) Brief(ctx context.Context, req brief.Request) (brief.Result, error) {
	var result brief.Result
	err := a.with(ctx, func(ctx context.Context, c Components) error {
		var err error
		result, err = c.Brief.Generate(ctx, req)
		return err
	})
	return result, err
}

// Serve migrates the schema and serves the HTTP API until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	return a.with(ctx, func(ctx context.Context, c Components) error {
		if err := c.Migrator.Up(ctx); err != nil {
			return err
		}
		server := api.NewServer(c.Config.API.ListenAddr, c.Router)
		if err := server.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}
