// Package app wires configuration, logging, the feed client, storage, mail,
// metrics, and the scheduler into one runnable unit.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/coreos/go-systemd/v22/daemon"

	"healthwatch/internal/config"
	"healthwatch/internal/feed"
	"healthwatch/internal/mail"
	"healthwatch/internal/metrics"
	"healthwatch/internal/objstore"
	"healthwatch/internal/run"
	"healthwatch/internal/scheduler"
	"healthwatch/internal/state"
	"healthwatch/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	objs   objstore.Client
	runner *run.Runner
	sched  *scheduler.Service

	watchCancel context.CancelFunc
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, logs: logs, log: log}
	if err := a.build(ctx, cfg); err != nil {
		_ = logs.Close()
		return nil, err
	}

	// Logging is the only section applied live; everything else takes a
	// restart, matching how the AWS clients cache their region/credentials.
	cfgm.SetOnChange(func(next *config.Config) {
		logs.Apply(logx.Config{
			Level:   next.Logging.Level,
			Console: next.Logging.Console,
			File: logx.FileConfig{
				Enabled: next.Logging.File.Enabled,
				Path:    next.Logging.File.Path,
			},
		})
	})
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	awsCfgs := map[string]aws.Config{}
	regionCfg := func(region string) (aws.Config, error) {
		if c, ok := awsCfgs[region]; ok {
			return c, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("aws config for %s: %w", region, err)
		}
		awsCfgs[region] = c
		return c, nil
	}

	feedAWS, err := regionCfg(cfg.Feed.Region)
	if err != nil {
		return err
	}
	fc := feed.NewClient(feed.NewAWSAPI(feedAWS), feed.Options{
		DetailBatchSize: cfg.Feed.DetailBatchSize,
		RatePerSec:      cfg.Feed.RatePerSec,
	}, a.log.With(logx.String("comp", "feed")))

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	objs, err := objstore.Open(objstore.Config{
		Driver:         cfg.Storage.Driver,
		Bucket:         cfg.Storage.Bucket,
		Path:           cfg.Storage.Path,
		MaxDeleteBatch: cfg.Storage.DeleteBatch,
		BusyTimeout:    busy,
	}, feedAWS, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.objs = objs

	store := state.New(objs, state.Config{
		KeyPrefix:  cfg.Storage.KeyPrefix,
		MaxHistory: cfg.Storage.MaxHistory,
	}, a.log.With(logx.String("comp", "state")))

	mailAWS, err := regionCfg(cfg.Mail.Region)
	if err != nil {
		return err
	}
	sender, err := mail.NewSES(mailAWS, mail.Config{
		From:    cfg.Mail.From,
		To:      cfg.Mail.To,
		Subject: cfg.Mail.Subject,
	})
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}

	var pub metrics.Publisher = metrics.Nop{}
	if cfg.Metrics.Enabled {
		pub = metrics.NewCloudWatch(feedAWS, cfg.Metrics.Namespace)
	}

	a.runner = run.New(fc, store, sender, pub, run.Options{
		Filter:   toFilter(cfg.Filter),
		Lookback: time24h(cfg.Filter.LookbackDays),
		Template: cfg.Mail.Template,
	}, a.log.With(logx.String("comp", "run")))

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Config{
			Spec:     cfg.Scheduler.Spec,
			Timezone: cfg.Scheduler.Timezone,
		}, a.runner.Execute, a.log.With(logx.String("comp", "scheduler")))
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		a.sched = sched
	}
	return nil
}

// RunOnce performs a single reconciliation pass and returns its error.
func (a *App) RunOnce(ctx context.Context) error {
	return a.runner.Execute(ctx)
}

// Start launches the config watcher and the scheduler, then signals
// readiness to the service manager when one is present.
func (a *App) Start(ctx context.Context) error {
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go func() { _ = a.cfgm.Watch(wctx) }()

	if a.sched != nil {
		if err := a.sched.Start(ctx); err != nil {
			cancel()
			return err
		}
	} else {
		a.log.Warn("scheduler disabled; daemon will idle until reconfigured")
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify: ready")
	}
	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.sched != nil {
		a.sched.Stop()
	}
	var err error
	if a.objs != nil {
		err = a.objs.Close()
	}
	a.log.Info("stopped")
	if cerr := a.logs.Close(); err == nil {
		err = cerr
	}
	return err
}
