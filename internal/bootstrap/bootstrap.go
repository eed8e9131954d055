// Package bootstrap wires config into the services shared by cmd/api and
// cmd/advisor.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cve-advisor/internal/application"
	appadvisory "github.com/bryanwahyu/cve-advisor/internal/application/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/application/contexts"
	"github.com/bryanwahyu/cve-advisor/internal/config"
	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/infra/ai/gemini"
	"github.com/bryanwahyu/cve-advisor/internal/infra/ai/openai"
	"github.com/bryanwahyu/cve-advisor/internal/infra/ai/prompt"
	"github.com/bryanwahyu/cve-advisor/internal/infra/contextclient"
	"github.com/bryanwahyu/cve-advisor/internal/infra/contextstore"
	mysqlp "github.com/bryanwahyu/cve-advisor/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/cve-advisor/internal/infra/db/postgres"
	"github.com/bryanwahyu/cve-advisor/internal/infra/delivery/discord"
	"github.com/bryanwahyu/cve-advisor/internal/infra/storage"
	"github.com/bryanwahyu/cve-advisor/internal/middleware"
	"github.com/bryanwahyu/cve-advisor/internal/observability"
)

// Logger builds the process logger from config.
func Logger(cfg *config.Config, name string) *zap.Logger {
	return observability.NewLogger(observability.Options{
		Name:       name,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// Store is the context persistence chosen by context_store.driver.
type Store struct {
	Persister contexts.Persister
	History   appadvisory.RunStore // nil unless SQL-backed
	DB        *sql.DB              // nil unless SQL-backed
}

func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// OpenStore connects the configured context store.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.ContextStore.Driver {
	case "memory":
		return &Store{Persister: contextstore.NewMemory()}, nil
	case "file":
		path, err := homedir.Expand(cfg.ContextStore.Path)
		if err != nil {
			return nil, fmt.Errorf("context_store.path: %w", err)
		}
		return &Store{Persister: contextstore.NewFile(path)}, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		if cfg.Database.Migrate {
			if err := mysqlp.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, fmt.Errorf("mysql migrate: %w", err)
			}
		}
		return &Store{Persister: mysqlp.NewContextRepository(db), History: mysqlp.NewRunRepository(db), DB: db}, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if cfg.Database.Migrate {
			if err := pgp.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
		}
		return &Store{Persister: pgp.NewContextRepository(db), History: pgp.NewRunRepository(db), DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown context_store.driver %q", cfg.ContextStore.Driver)
	}
}

// Oracle builds the configured text-generation backend.
func Oracle(ctx context.Context, cfg *config.Config) (advisory.Oracle, error) {
	hc := &http.Client{Timeout: time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second}
	switch cfg.Oracle.Provider {
	case "openai":
		return openai.NewClient(cfg.Oracle.APIKey, cfg.Oracle.BaseURL, cfg.Oracle.Model, hc), nil
	case "gemini":
		return gemini.NewClient(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, hc)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}

// Archive connects MinIO when enabled; nil otherwise.
func Archive(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.Store, error) {
	if !cfg.Minio.Enabled {
		return nil, nil
	}
	return storage.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
		logger,
	)
}

// PipelineDeps are the pieces of a pipeline that the caller owns.
type PipelineDeps struct {
	Contexts advisory.ContextSource // used when pipeline.context_url is empty
	History  appadvisory.RunStore
	Archive  advisory.Archive // leave nil, not a nil *storage.Store
	Observer appadvisory.Observer
	Runs     *appadvisory.Registry
}

// Pipeline validates the pipeline settings and builds the service. The
// returned error names every missing parameter.
func Pipeline(ctx context.Context, cfg *config.Config, deps PipelineDeps, logger *zap.Logger) (*appadvisory.Service, error) {
	if err := cfg.ValidatePipeline(); err != nil {
		return nil, err
	}
	if err := middleware.ValidateURL(cfg.Pipeline.WebhookURL); err != nil {
		return nil, fmt.Errorf("pipeline.webhook_url: %w", err)
	}
	if cfg.Pipeline.ContextURL != "" {
		if err := middleware.ValidateURL(cfg.Pipeline.ContextURL); err != nil {
			return nil, fmt.Errorf("pipeline.context_url: %w", err)
		}
	}
	oracle, err := Oracle(ctx, cfg)
	if err != nil {
		return nil, err
	}

	templatePath, err := homedir.Expand(cfg.Pipeline.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline.template_path: %w", err)
	}

	var source advisory.ContextSource = deps.Contexts
	if cfg.Pipeline.ContextURL != "" {
		source = contextclient.New(cfg.Pipeline.ContextURL, nil)
	}
	if deps.Runs == nil {
		deps.Runs = appadvisory.NewRegistry(0)
	}

	svc := &appadvisory.Service{
		Contexts:  source,
		Templates: prompt.FileTemplate{Path: templatePath, Logger: logger},
		Synth: &appadvisory.Synthesizer{
			Oracle:   oracle,
			Composer: prompt.Composer{},
			Logger:   logger.Named("synth"),
		},
		Delivery:    discord.NewWebhook(cfg.Pipeline.WebhookURL, nil, logger.Named("discord")),
		Archive:     deps.Archive,
		Runs:        deps.Runs,
		History:     deps.History,
		Clock:       application.SystemClock{},
		Observer:    deps.Observer,
		Logger:      logger.Named("pipeline"),
		ProjectInfo: cfg.Pipeline.ProjectInfo,
		ScanLogPath: cfg.Pipeline.ScanLogPath,
	}
	return svc, nil
}
