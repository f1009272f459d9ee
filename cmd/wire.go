package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/crew/internal/adapters/api"
	"github.com/bnema/crew/internal/adapters/metrics"
	statusadapter "github.com/bnema/crew/internal/adapters/render/status"
	"github.com/bnema/crew/internal/adapters/storage"
	chainstore "github.com/bnema/crew/internal/adapters/storage/chain"
	filestore "github.com/bnema/crew/internal/adapters/storage/file"
	memorystore "github.com/bnema/crew/internal/adapters/storage/memory"
	passstore "github.com/bnema/crew/internal/adapters/storage/pass"
	tomlstore "github.com/bnema/crew/internal/adapters/storage/toml"
	"github.com/bnema/crew/internal/adapters/tokenstore"
	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/ports"
	"github.com/bnema/crew/internal/version"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".crew"
	envPrefix  = "CREW"

	keyBaseURL        = "api.base_url"
	keyTimeout        = "api.timeout"
	keyRateLimit      = "api.rate_limit"
	keyBurst          = "api.burst"
	keyStorageBackend = "storage.backend"
	keyStoragePath    = "storage.path"
	keyPortalListen   = "portal.listen"
	keyLogLevel       = "log.level"
)

type config struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64
	Burst          int
	StorageBackend string
	StoragePath    string
	PortalListen   string
	LogLevel       string
}

type app struct {
	cfg            config
	logger         *slog.Logger
	sessions       *application.Sessions
	guard          *application.RouteGuard
	catering       *application.CateringService
	metrics        *metrics.Metrics
	statusRenderer func([]application.SessionStatus, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	backend, err := newStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire storage: %w", err)
	}

	clock := ports.SystemClock{}
	tokens := tokenstore.NewStore(backend, clock, logger)
	sessions := application.NewSessions(tokens, logger)
	m := metrics.New()

	gateway, err := api.New(api.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
		UserAgent: "crew/" + version.Version,
	}, sessions, api.WithRecorder(m), api.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("wire api gateway: %w", err)
	}
	sessions.Bind(gateway)
	sessions.RestoreAll(context.Background())

	return &app{
		cfg:            cfg,
		logger:         logger,
		sessions:       sessions,
		guard:          application.NewRouteGuard(sessions),
		catering:       application.NewCateringService(gateway),
		metrics:        m,
		statusRenderer: statusadapter.Render,
		now:            clock.Now,
	}, nil
}

func loadConfig(v *viper.Viper) (config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return config{}, fmt.Errorf("resolve home directory: %w", err)
	}

	// A missing .env is the common case.
	_ = godotenv.Load()

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(homeDir, configDir))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyBaseURL, "http://127.0.0.1:8000/api")
	v.SetDefault(keyTimeout, 30*time.Second)
	v.SetDefault(keyRateLimit, 0.0)
	v.SetDefault(keyBurst, 1)
	v.SetDefault(keyStorageBackend, "chain")
	v.SetDefault(keyStoragePath, filepath.Join(homeDir, configDir))
	v.SetDefault(keyPortalListen, "127.0.0.1:8080")
	v.SetDefault(keyLogLevel, "warn")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := config{
		BaseURL:        strings.TrimSpace(v.GetString(keyBaseURL)),
		Timeout:        v.GetDuration(keyTimeout),
		RateLimit:      v.GetFloat64(keyRateLimit),
		Burst:          v.GetInt(keyBurst),
		StorageBackend: strings.ToLower(strings.TrimSpace(v.GetString(keyStorageBackend))),
		StoragePath:    v.GetString(keyStoragePath),
		PortalListen:   v.GetString(keyPortalListen),
		LogLevel:       v.GetString(keyLogLevel),
	}
	if cfg.BaseURL == "" {
		return config{}, errors.New("api base url is empty")
	}
	if cfg.StoragePath == "" {
		return config{}, errors.New("storage path is empty")
	}

	return cfg, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// newStorage scopes every backend to the API origin so tokens from one
// server are never sent to another.
func newStorage(cfg config) (ports.Storage, error) {
	namespace, err := storage.OriginNamespace(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	fileBackend := func() ports.Storage {
		return filestore.NewStore(filepath.Join(cfg.StoragePath, "secrets", namespace))
	}
	passBackend := func() ports.Storage {
		return passstore.NewStore(filepath.Join("crew", namespace))
	}

	switch cfg.StorageBackend {
	case "chain", "":
		chain, err := chainstore.NewStoreChecked(passBackend(), fileBackend())
		if err != nil {
			return nil, err
		}
		return chain, nil
	case "pass":
		return passBackend(), nil
	case "file":
		return fileBackend(), nil
	case "toml":
		store, err := tomlstore.NewStore(filepath.Join(cfg.StoragePath, "sessions", namespace+".toml"), namespace, ports.SystemClock{})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return memorystore.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want chain, pass, file, toml or memory)", cfg.StorageBackend)
	}
}
