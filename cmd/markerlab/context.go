package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/markerlab/markerlab/internal/cache"
	"github.com/markerlab/markerlab/internal/config"
	"github.com/markerlab/markerlab/internal/database"
	"github.com/markerlab/markerlab/internal/influx"
	"github.com/markerlab/markerlab/internal/logging"
	"github.com/markerlab/markerlab/internal/otel"
	"github.com/markerlab/markerlab/internal/stash"
	"github.com/markerlab/markerlab/internal/storage"
	"github.com/markerlab/markerlab/internal/worker"
)

const configFileHint = config.FileName

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() error {
	c.configOnce.Do(func() {
		dir := "."
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			dir = strings.TrimSpace(*c.configFlag)
		}
		if err := config.Load(dir); err != nil {
			// A missing file is fine, every key has a default.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				c.configErr = err
			}
		}
	})
	return c.configErr
}

// app is one fully wired markerlab instance.
type app struct {
	settings config.Settings
	logs     *logging.SlogManager
	log      zerolog.Logger
	logFile  *os.File
	otel     *otel.Provider
	db       *database.Manager
	backend  storage.Backend
	stash    *stash.Client
	influx   *influx.Manager
	manager  *worker.Manager
}

// newApp builds the logging pipeline, storage, Stash client and worker.
// When quiet is set, logs go only to the session file.
func newApp(ctx context.Context, quiet bool) (*app, error) {
	a := &app{settings: config.Get()}
	s := a.settings

	if err := os.MkdirAll(s.LogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := logging.LogFilePath(s.LogsDir, "markerlab", time.Now())
	f, err := os.OpenFile(filepath.Clean(path), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = f

	a.otel, err = otel.New(otel.ConfigFrom(s.OTel, f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to start otel: %w", err)
	}

	var logOut io.Writer = f
	if !quiet {
		logOut = io.MultiWriter(os.Stdout, f)
	}
	a.logs = logging.NewSlogManager()
	a.logs.SetContextProvider(func(context.Context) []slog.Attr {
		return []slog.Attr{slog.String("storage", s.Storage.Type)}
	})
	a.logs.Setup(logOut, s.LogLevel, a.otel.LoggerProvider())

	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	var consoleOut io.Writer = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
	if !quiet {
		consoleOut = zerolog.MultiLevelWriter(
			zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
			consoleOut,
		)
	}
	a.log = zerolog.New(consoleOut).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(s.LogLevel); err == nil {
		a.log = a.log.Level(lvl)
	}

	a.db = database.NewManager(a.log.With().Str("component", "database").Logger())
	a.backend, err = storage.NewBackend(s.Storage, storage.Dependencies{
		Database:   a.db,
		DBConfig:   s.DB,
		LogManager: a.logs,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.backend.Init(); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	a.stash = stash.New(s.Stash.URL, s.Stash.APIKey)

	var activity influx.Recorder = influx.Nop{}
	if s.Influx.Enabled {
		a.influx = influx.NewManager(a.log.With().Str("component", "influx").Logger(), s.Influx)
		if err := a.influx.Connect(ctx); err != nil {
			a.logs.Logger().Warn("activity metrics disabled", "error", err)
			a.influx = nil
		} else {
			activity = a.influx
		}
	}

	a.manager = worker.NewManager(worker.Dependencies{
		Stash:      a.stash,
		Backend:    a.backend,
		Tags:       cache.NewTagCache(),
		Performers: cache.NewPerformerCache(),
		LogManager: a.logs,
		Activity:   activity,
		Config:     s,
	})
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Flush(ctx))
	}
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", err)
	}
}

// withApp runs fn against a quiet app and closes it afterwards.
func (c *commandContext) withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
