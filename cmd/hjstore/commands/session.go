package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hjrent/hjstore/pkg/backend"
	"github.com/hjrent/hjstore/pkg/config"
	"github.com/hjrent/hjstore/pkg/recordstore"
	"github.com/hjrent/hjstore/pkg/stores"
	"github.com/hjrent/hjstore/pkg/telemetry"
)

const defaultConfigFile = config.DefaultFileName

// session holds everything a command needs to talk to the record store.
type session struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	backend stores.Store
	store   *recordstore.Store
}

// resolveConfigPath returns the --config flag, or the default file in the
// working directory when it exists.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
	}
	return cfg, nil
}

// openSession loads configuration, starts telemetry and connects the
// configured backend. Logs, including store events, go to logOut.
func openSession(ctx context.Context, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	telCfg := cfg.TelemetryConfig()
	telCfg.Logging.Writer = logOut
	tel, err := telemetry.NewTelemetry(telCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	tel.Events.Subscribe(telemetry.LogEvents(tel.Logger.NewComponentLogger("events")), nil)
	if err := tel.StartMetricsServer(); err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	exec, err := openBackend(ctx, cfg)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	log.Debug().
		Str("backend", cfg.Backend).
		Msg("Record store ready")

	return &session{
		cfg:     cfg,
		tel:     tel,
		backend: exec,
		store:   recordstore.New(backend.NewClient(exec), recordstore.WithTelemetry(tel)),
	}, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (stores.Store, error) {
	switch cfg.Backend {
	case config.BackendREST:
		store, err := stores.NewRESTStore(cfg.RESTStoreConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create REST store: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize REST store: %w", err)
		}
		return store, nil

	default:
		if _, err := os.Stat(cfg.SQLite.Path); errors.Is(err, fs.ErrNotExist) && !stores.IsMemoryPath(cfg.SQLite.Path) {
			return nil, fmt.Errorf("database %s does not exist, run 'hjstore init' first", cfg.SQLite.Path)
		}

		store, err := stores.NewSQLiteStore(cfg.SQLiteStoreConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	}
}

// Close releases the backend and flushes telemetry.
func (s *session) Close(ctx context.Context) {
	if err := s.backend.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close backend")
	}
	if err := s.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}
