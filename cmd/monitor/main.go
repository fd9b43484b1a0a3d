package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/vedantwpatil/mouse-monitor/internal/config"
	"github.com/vedantwpatil/mouse-monitor/internal/host"
	"github.com/vedantwpatil/mouse-monitor/internal/logging"
	"github.com/vedantwpatil/mouse-monitor/internal/monitor"
	"github.com/vedantwpatil/mouse-monitor/internal/output"
	"github.com/vedantwpatil/mouse-monitor/internal/overlay"
	"github.com/vedantwpatil/mouse-monitor/internal/tracking"
)

// The host loop owns the main thread for the life of the process.
func init() {
	runtime.LockOSThread()
}

type Application struct {
	configPath string
	config     *config.Config
	logger     *slog.Logger

	loop     *host.Loop
	registry *output.Registry
	server   *overlay.Server
	monitor  *monitor.Monitor

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApplication(configPath, logLevel string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	registry := output.NewRegistry()
	if err := overlay.Sync(registry, sourceSpecs(cfg), logger); err != nil {
		return nil, fmt.Errorf("register sources: %w", err)
	}

	loop := host.NewLoop()
	mon, err := monitor.New(monitor.Options{
		Timers:           loop,
		Sender:           output.NewAdapter(registry, logger),
		Source:           tracking.NewGlobalHook(),
		Locate:           tracking.RobotgoLocator,
		MaxPendingClicks: cfg.Tracking.MaxPendingClicks,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		configPath: configPath,
		config:     cfg,
		logger:     logger,
		loop:       loop,
		registry:   registry,
		server:     overlay.NewServer(registry, logger),
		monitor:    mon,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Run blocks on the main thread until a termination signal arrives.
func (app *Application) Run() error {
	ln, err := net.Listen("tcp", app.config.Overlay.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", app.config.Overlay.Addr, err)
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.server.Serve(ln)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go app.handleSignals(sigChan, serveErr)

	app.loop.Post(app.configure)

	if err := app.loop.Run(app.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return app.cleanup()
}

func (app *Application) configure(m host.Main) {
	if err := app.monitor.Configure(m, app.config.Settings); err != nil {
		app.logger.Error("failed to start monitoring", "error", err)
	}
}

func (app *Application) reload(m host.Main) {
	cfg, err := config.Load(app.configPath)
	if err != nil {
		app.logger.Error("reload failed, keeping current settings", "error", err)
		return
	}
	if cfg.Overlay.Addr != app.config.Overlay.Addr {
		app.logger.Warn("overlay address changes apply on restart", "addr", app.config.Overlay.Addr)
		cfg.Overlay.Addr = app.config.Overlay.Addr
	}
	if err := overlay.Sync(app.registry, sourceSpecs(cfg), app.logger); err != nil {
		app.logger.Warn("some sources could not be updated", "error", err)
	}
	app.config = cfg
	app.logger.Info("config reloaded", "path", cfg.Path)
	app.configure(m)
}

func (app *Application) handleSignals(sigChan chan os.Signal, serveErr chan error) {
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				app.loop.Post(app.reload)
				continue
			}
			app.logger.Info("received signal, shutting down", "signal", sig.String())
			app.loop.Post(func(m host.Main) {
				app.monitor.Teardown(m)
				app.cancel()
			})
			return
		case err := <-serveErr:
			if err != nil {
				app.logger.Error("overlay server stopped", "error", err)
			}
			app.loop.Post(func(m host.Main) {
				app.monitor.Teardown(m)
				app.cancel()
			})
			return
		}
	}
}

func (app *Application) cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := app.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown overlay server: %w", err))
	}
	if err := app.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func sourceSpecs(cfg *config.Config) []overlay.SourceSpec {
	specs := make([]overlay.SourceSpec, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		specs = append(specs, overlay.SourceSpec{Name: src.Name, Type: output.SinkType(src.Type)})
	}
	return specs
}

func listSources(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry := output.NewRegistry()
	defer registry.Close()
	if err := overlay.Sync(registry, sourceSpecs(cfg), slog.Default()); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(registry.Enumerate(""))
}

func main() {
	configPath := flag.String("config", "", "path to the config file (default: per-user config dir)")
	list := flag.Bool("list-sources", false, "print the configured overlay sources and exit")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	writeDefault := flag.Bool("write-default-config", false, "write the default config to the config path and exit")
	flag.Parse()

	if *writeDefault {
		path, err := config.WriteDefault(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "write default config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(path)
		return
	}

	if *list {
		if err := listSources(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "list sources: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication(*configPath, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		app.logger.Error("application error", "error", err)
		os.Exit(1)
	}
}
