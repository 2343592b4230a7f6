package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/sadopc/cumpli/internal/app"
	"github.com/sadopc/cumpli/internal/config"
	"github.com/sadopc/cumpli/internal/logging"
	"github.com/sadopc/cumpli/internal/notify"
	"github.com/sadopc/cumpli/internal/store"
)

// session is everything a command needs: config, logging, store, service.
type session struct {
	cfg   *config.Config
	store *store.Store
	svc   *app.Service
	log   io.Closer
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if cfg.DBPath == "" {
		if cfg.DBPath, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	}
	return cfg, nil
}

// openSession wires the service to sink. Notifications are always logged
// as well.
func openSession(ctx context.Context, g *globalFlags, sink notify.Sink) (*session, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logging.SetLevel(logging.ParseLevel(cfg.Log.Level))
	if g.verbose {
		logging.SetLevel(logging.LevelDebug)
	}
	logFile, err := logging.Setup(cfg.Log.File)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	sinks := notify.Multi{notify.Log{}}
	if sink != nil {
		sinks = append(sinks, sink)
	}
	svc, err := app.New(ctx, st, sinks, app.Options{TickInterval: cfg.Focus.TickInterval})
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: st, svc: svc, log: logFile}, nil
}

func (s *session) Close(ctx context.Context) error {
	err := s.svc.Close(ctx)
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	s.log.Close()
	return err
}
