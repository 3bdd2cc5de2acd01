// Package app wires configuration, logging, storage, the Canvas client,
// the inference engine, and the trigger scheduler into one runnable unit.
package app

import (
	"context"
	"strings"
	"time"

	"canvassync/internal/canvas"
	"canvassync/internal/config"
	"canvassync/internal/inference"
	"canvassync/internal/runtime/supervisor"
	"canvassync/internal/schedule"
	"canvassync/internal/services/scheduler"
	"canvassync/internal/storage"
	"canvassync/internal/syncer"
	"canvassync/pkg/logx"
	"canvassync/pkg/systemd"
)

type App struct {
	cfg    *config.Config
	cfgMgr *config.Manager

	logSvc *logx.Service
	log    logx.Logger

	store   storage.Store // nil when disabled
	trigger *scheduler.Service
	sync    *syncer.Service
	sup     *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	mgr.Commit(cfg)

	logSvc, log := logx.New(logCfg(cfg.Logging))
	mgr.SetLogger(log)

	// Timetable: the env secret wins over the config block. Malformed input
	// yields an empty index, never a startup failure.
	var index *schedule.Index
	if raw, ok := config.TimetableFromEnv(); ok {
		index = schedule.Parse(raw, log)
	} else {
		index = schedule.New(cfg.Schedule, log)
	}
	if index.Empty() {
		log.Warn("no class timetable configured, 'next class' phrases will not resolve")
	} else {
		log.Info("class timetable loaded", logx.Int("courses", index.Len()))
	}
	engine := inference.New(index, log)

	reqTimeout, err := config.ParseDurationOrDefault("canvas.request_timeout", cfg.Canvas.RequestTimeout, 30*time.Second)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	client, err := canvas.NewClient(canvas.Config{
		BaseURL:        cfg.Canvas.BaseURL,
		Token:          cfg.Canvas.Token,
		PerPage:        cfg.Canvas.PerPage,
		RatePerSec:     cfg.Canvas.RatePerSec,
		Burst:          cfg.Canvas.Burst,
		RequestTimeout: reqTimeout,
	}, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	// Storage is optional; a broken store degrades to running without one.
	var store storage.Store
	if cfg.Storage != nil {
		busy, derr := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if derr != nil {
			_ = logSvc.Close()
			return nil, derr
		}
		st, serr := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log)
		if serr != nil {
			log.Warn("storage unavailable, continuing without it", logx.Err(serr))
		} else {
			store = st
		}
	}

	lookback, err := config.ParseDurationOrDefault("sync.lookback", cfg.Sync.Lookback, 30*24*time.Hour)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	sync := syncer.New(client, engine, store, syncer.Config{
		Lookback:   lookback,
		OutputPath: cfg.Sync.OutputPath,
	}, log)

	return &App{
		cfg:    cfg,
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		store:  store,
		sync:   sync,
	}, nil
}

// Schedule returns the configured trigger spec (empty means one-shot).
func (a *App) Schedule() string { return strings.TrimSpace(a.cfg.Sync.Schedule) }

// RunOnce executes a single sync pass.
func (a *App) RunOnce(ctx context.Context) error { return a.sync.Run(ctx) }

// Start launches the daemon: an immediate sync, the periodic trigger, the
// config watcher, and systemd integration.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, a.log)

	trigger, err := scheduler.New(a.log, a.cfg.Sync.Timezone)
	if err != nil {
		return err
	}
	if err := trigger.Start(a.sup.Context(), a.Schedule(), a.sync.Run); err != nil {
		return err
	}
	a.trigger = trigger

	// Sync once right away; the trigger covers everything after.
	a.sup.Go("initial-sync", a.sync.Run)

	a.sup.Go("config-watch", a.cfgMgr.Watch)
	a.sup.Go("config-apply", a.applyConfigUpdates)
	a.sup.Go("sd-watchdog", func(ctx context.Context) error {
		return systemd.WatchdogLoop(ctx, a.log)
	})

	systemd.NotifyReady(a.log)
	a.log.Info("canvassync started", logx.String("schedule", a.Schedule()))
	return nil
}

// applyConfigUpdates consumes config reloads. Only logging settings apply
// live; everything else (canvas credentials, timetable, trigger) requires a
// restart and is called out when it changes.
func (a *App) applyConfigUpdates(ctx context.Context) error {
	ch := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cfg, ok := <-ch:
			if !ok {
				return nil
			}
			a.logSvc.Apply(logCfg(cfg.Logging))
			a.log.Info("logging config applied; other changes take effect on restart")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	systemd.NotifyStopping(a.log)

	if a.trigger != nil {
		a.trigger.Stop(ctx)
	}
	if a.sup != nil {
		if err := a.sup.Stop(10 * time.Second); err != nil {
			a.log.Warn("shutdown incomplete", logx.Err(err))
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("canvassync stopped")
	return a.logSvc.Close()
}

func logCfg(l config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
	}
}
