// Package app wires the storage, use case and HTTP layers together and runs
// the server until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkly/internal/config"
	"github.com/vadimbarashkov/linkly/internal/entity"
	"github.com/vadimbarashkov/linkly/internal/usecase"
	"github.com/vadimbarashkov/linkly/migrations"
	"github.com/vadimbarashkov/linkly/pkg/postgres"
	"github.com/vadimbarashkov/linkly/pkg/sqlite"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/linkly/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/linkly/internal/adapter/repository/postgres"
	sqliterepo "github.com/vadimbarashkov/linkly/internal/adapter/repository/sqlite"
)

const serviceName = "linkly"

// linkRepository is satisfied by every storage backend.
type linkRepository interface {
	List(ctx context.Context) ([]*entity.Link, error)
	RetrieveByCode(ctx context.Context, code string) (*entity.Link, error)
	Save(ctx context.Context, code, targetURL string) (*entity.Link, error)
	SoftDelete(ctx context.Context, code string) error
	IncrementClicks(ctx context.Context, code string) (*entity.Link, error)
}

// NewLogger builds the structured logger shared by the request logger and the app.
func NewLogger(cfg config.Log) *httplog.Logger {
	return httplog.NewLogger(serviceName, httplog.Options{
		LogLevel:       cfg.SlogLevel(),
		JSON:           cfg.JSON,
		Concise:        cfg.Concise,
		RequestHeaders: !cfg.Concise,
	})
}

// openStorage connects to the configured backend, applies migrations and
// returns the link repository together with the underlying handle.
func openStorage(ctx context.Context, cfg *config.Config) (linkRepository, *sqlx.DB, error) {
	const op = "app.openStorage"

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		if err := sqlite.RunMigrations(migrations.SQLite, migrations.SQLiteDir, cfg.SQLite.Path); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		db, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		return sqliterepo.NewLinkRepository(db), db, nil
	default:
		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := postgres.RunMigrations(migrations.Postgres, migrations.PostgresDir, cfg.Postgres.DSN()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return pgrepo.NewLinkRepository(db), db, nil
	}
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := NewLogger(cfg.Log)

	linkRepo, db, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer db.Close()

	linkUseCase := usecase.NewLinkUseCase(linkRepo)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, linkUseCase),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env),
			slog.String("storage", cfg.Storage.Driver),
		)

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
