package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genricoloni/mediashell/internal/config"
	"github.com/genricoloni/mediashell/internal/coverart"
	"github.com/genricoloni/mediashell/internal/domain"
	"github.com/genricoloni/mediashell/internal/eventloop"
	"github.com/genricoloni/mediashell/internal/instance"
	"github.com/genricoloni/mediashell/internal/metadata"
	"github.com/genricoloni/mediashell/internal/player"
	"github.com/genricoloni/mediashell/internal/playlist"
	"github.com/genricoloni/mediashell/internal/power"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath       string
	logLevel         string
	noSingleInstance bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "mediashell [file]",
		Short:        "Single-instance media player shell",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := ""
			if len(args) == 1 {
				seed = args[0]
			}
			return run(cmd.Context(), opts, seed)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.noSingleInstance, "no-single-instance", false, "do not forward to or act as the primary instance")
	return cmd
}

func run(ctx context.Context, opts *options, seed string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.noSingleInstance {
		cfg.Coordinate = false
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mediashell", cfg.Fields()...)

	// a secondary launch forwards its file and exits before anything else starts
	coordinator := instance.NewCoordinator(logger, cfg)
	if cfg.SingleInstance() && seed != "" && coordinator.TryHandoff(ctx, seed) {
		return nil
	}

	app := fx.New(appOptions(cfg, logger, coordinator, player.Seed(seed)))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop cleanly: %w", err)
	}
	return nil
}

// appOptions is the dependency graph of a primary instance
func appOptions(cfg *config.AppConfig, logger *zap.Logger, coordinator *instance.Coordinator, seed player.Seed) fx.Option {
	return fx.Options(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		fx.Supply(logger, coordinator, seed),

		fx.Provide(
			func() domain.Config { return cfg },
			eventloop.New,
			newProbe,
			newCache,
			coverart.NewProvider,
			playlist.NewEngine,
			newPipeline,
			power.NewMonitor,
			newFacade,
		),

		fx.Invoke(registerHooks, consumeEvents),
	)
}

// newLogger creates a production zap logger at the given level
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func newProbe(logger *zap.Logger, loop *eventloop.Loop, cfg domain.Config) *metadata.TagProbe {
	return metadata.NewTagProbe(logger, loop.Post, coverart.NewNormalizer(logger, cfg.GetCoverMaxSize()))
}

func newCache(logger *zap.Logger, cfg domain.Config) *coverart.Cache {
	return coverart.NewCache(logger, cfg.GetCoverCacheEntries())
}

func newPipeline(logger *zap.Logger, probe *metadata.TagProbe, cache *coverart.Cache) *metadata.Pipeline {
	return metadata.NewPipeline(logger, probe, cache)
}

func newFacade(
	logger *zap.Logger,
	loop *eventloop.Loop,
	engine *playlist.Engine,
	pipeline *metadata.Pipeline,
	images *coverart.Provider,
	coordinator *instance.Coordinator,
	mon domain.PowerMonitor,
	seed player.Seed,
) *player.Facade {
	return player.NewFacade(logger, loop, engine, pipeline, images, coordinator, mon, seed)
}

// registerHooks orders startup so the loop runs before anything posts to it.
// fx stops hooks in reverse order.
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	cfg domain.Config,
	coordinator *instance.Coordinator,
	mon domain.PowerMonitor,
	loop *eventloop.Loop,
	probe *metadata.TagProbe,
	facade *player.Facade,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.SingleInstance() {
				logger.Info("Single-instance coordination disabled")
				return nil
			}
			if !coordinator.StartServing(ctx) {
				logger.Warn("Running without single-instance coordination")
			}
			return nil
		},
		OnStop: coordinator.Stop,
	})
	lc.Append(fx.Hook{
		OnStart: mon.Start,
		OnStop:  mon.Stop,
	})
	lc.Append(fx.Hook{
		OnStart: loop.Start,
		OnStop:  loop.Stop,
	})
	lc.Append(fx.Hook{
		OnStop: probe.Close,
	})
	lc.Append(fx.Hook{
		OnStart: facade.Start,
		OnStop:  facade.Stop,
	})
}

// consumeEvents logs what the presentation layer would receive.
// The goroutine ends when the facade closes its events channel.
func consumeEvents(lc fx.Lifecycle, logger *zap.Logger, presenter *player.Facade) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			events := presenter.Events()
			go func() {
				for ev := range events {
					logger.Debug("Presentation event", zap.String("kind", string(ev.Kind)), zap.String("path", ev.Path))
				}
			}()
			return nil
		},
	})
}
