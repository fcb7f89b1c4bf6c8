package app

import (
	"context"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	gormadapter "github.com/tigerroll/roomrate/internal/adapter/database/gorm"
	"github.com/tigerroll/roomrate/internal/adapter/database/gorm/mysql"
	"github.com/tigerroll/roomrate/internal/adapter/database/gorm/postgres"
	"github.com/tigerroll/roomrate/internal/adapter/database/gorm/sqlite"
	"github.com/tigerroll/roomrate/internal/adapter/storage"
	_ "github.com/tigerroll/roomrate/internal/adapter/storage/gcs"
	_ "github.com/tigerroll/roomrate/internal/adapter/storage/local"
	"github.com/tigerroll/roomrate/internal/api"
	"github.com/tigerroll/roomrate/internal/brief"
	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/etl"
	"github.com/tigerroll/roomrate/internal/export"
	"github.com/tigerroll/roomrate/internal/forecast"
	"github.com/tigerroll/roomrate/internal/horizon"
	"github.com/tigerroll/roomrate/internal/job"
	"github.com/tigerroll/roomrate/internal/metrics"
	"github.com/tigerroll/roomrate/internal/migration"
	"github.com/tigerroll/roomrate/internal/observability"
	"github.com/tigerroll/roomrate/internal/repository"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// DefaultDBAdaptors is used when DB_ADAPTORS is not set.
const DefaultDBAdaptors = "postgres,mysql,sqlite"

// DBProviderMap is used by main.go to select providers by name.
var DBProviderMap = map[string]func(cfg *config.Config) database.DBProvider{
	postgres.Type: postgres.NewProvider,
	"redshift":    postgres.NewProvider,
	mysql.Type:    mysql.NewProvider,
	sqlite.Type:   sqlite.NewProvider,
}

// DBProviderOptions returns the fx options registering the comma separated adaptors.
// An empty list falls back to DB_ADAPTORS and then to DefaultDBAdaptors.
func DBProviderOptions(adaptors string) []fx.Option {
	if strings.TrimSpace(adaptors) == "" {
		adaptors = os.Getenv("DB_ADAPTORS")
	}
	if strings.TrimSpace(adaptors) == "" {
		adaptors = DefaultDBAdaptors
	}

	options := make([]fx.Option, 0, 3)
	seen := make(map[string]bool)
	for _, name := range strings.Split(adaptors, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		provider, ok := DBProviderMap[name]
		if !ok {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
			continue
		}
		// redshift shares the postgres provider.
		if name == "redshift" {
			name = postgres.Type
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		options = append(options, fx.Provide(fx.Annotate(provider, fx.ResultTags(`group:"`+database.DBProviderGroup+`"`))))
		logger.Debugf("DB Provider '%s' selected and registered.", name)
	}
	return options
}

// newConnection resolves the connection holding the rate tables.
func newConnection(resolver database.DBConnectionResolver, cfg *config.Config) (database.DBConnection, error) {
	return resolver.ResolveDBConnection(context.Background(), cfg.Pipeline.DBRef)
}

func newStorageResolver(lc fx.Lifecycle, cfg *config.Config) (*storage.Resolver, storage.StorageConnectionResolver) {
	r := storage.NewResolver(cfg)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return r.CloseAll() },
	})
	return r, r
}

func newObservability(lc fx.Lifecycle, cfg *config.Config) (*observability.Providers, error) {
	providers, err := observability.Setup(context.Background(), cfg.Observability)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: providers.Shutdown,
	})
	return providers, nil
}

func newChain(cfg *config.Config, recorder forecast.FallbackRecorder) (*forecast.Chain, error) {
	estimators, err := forecast.NewEstimators(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	return forecast.NewChain(recorder, estimators...), nil
}

func newOrchestrator(cfg *config.Config, chain *forecast.Chain) (*horizon.Orchestrator, error) {
	opts, err := horizon.OptionsFromConfig(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	return horizon.NewOrchestrator(opts, chain), nil
}

func newExporter(cfg *config.Config, resolver storage.StorageConnectionResolver) *export.Exporter {
	return export.NewExporter(cfg.Export, resolver)
}

func newPipeline(store *repository.Store, orchestrator *horizon.Orchestrator, exporter *export.Exporter, recorder metrics.Recorder, tracer *metrics.Tracer) *job.Pipeline {
	return job.NewPipeline(store, orchestrator, exporter, recorder, tracer)
}

func newLoader(cfg *config.Config, store *repository.Store) (*etl.Loader, error) {
	loc, err := cfg.System.Location()
	if err != nil {
		return nil, err
	}
	return etl.NewLoader(cfg.ETL, store).WithLocation(loc), nil
}

func newTokenIssuer(cfg *config.Config) *api.TokenIssuer {
	return api.NewTokenIssuer(cfg.API.JWTSecret, cfg.API.TokenTTL())
}

// newBriefService uses the chat model only when an API key is configured.
func newBriefService(cfg *config.Config, store *repository.Store) (*brief.Service, error) {
	loc, err := cfg.System.Location()
	if err != nil {
		return nil, err
	}
	var writer brief.Writer
	if w := brief.NewOpenAIWriter(cfg.Brief.OpenAI); w != nil {
		writer = w
	} else {
		logger.Infof("No OpenAI API key configured; briefs use the fallback text.")
	}
	return brief.NewService(store, writer, brief.NewSMTPSender(cfg.Brief.SMTP), cfg.Brief.Days, cfg.Brief.SMTP.AdminEmail, loc), nil
}

func newRouter(cfg *config.Config, store *repository.Store, loader *etl.Loader, pipeline *job.Pipeline, issuer *api.TokenIssuer, briefs *brief.Service, prom *metrics.PrometheusRecorder) *gin.Engine {
	if logger.GetLogLevel() != logger.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(cfg.API, api.Handlers{
		Store:    store,
		ETL:      loader,
		Pipeline: pipeline,
		Issuer:   issuer,
		Brief:    briefs,
		Metrics:  prom.Handler(),
	})
}

// Module provides every roomrate component on top of the configuration and the selected DB providers.
var Module = fx.Options(
	logger.Module,
	gormadapter.Module,
	metrics.Module,

	fx.Provide(newStorageResolver),
	fx.Provide(newObservability),
	fx.Provide(newConnection),
	fx.Provide(repository.NewStore),
	fx.Provide(migration.NewMigrator),
	fx.Provide(newChain),
	fx.Provide(newOrchestrator),
	fx.Provide(newExporter),
	fx.Provide(newPipeline),
	fx.Provide(newLoader),
	fx.Provide(newTokenIssuer),
	fx.Provide(newBriefService),
	fx.Provide(newRouter),

	// Installs the OpenTelemetry globals before the recorders and tracers are used.
	fx.Invoke(func(*observability.Providers) {}),
)
