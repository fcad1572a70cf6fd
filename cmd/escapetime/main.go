package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/escapetime/internal/api"
	"github.com/bft-labs/escapetime/internal/cliconfig"
	"github.com/bft-labs/escapetime/internal/limitswatch"
	"github.com/bft-labs/escapetime/internal/server"
	"github.com/bft-labs/escapetime/pkg/fractal"
	"github.com/bft-labs/escapetime/pkg/log"
)

const helpBanner = `
  ___  ___  ___ __ _ _ __   ___  | |_(_)_ __ ___   ___
 / _ \/ __|/ __/ _' | '_ \ / _ \ | __| | '_ ' _ \ / _ \
|  __/\__ \ (_| (_| | |_) |  __/ | |_| | | | | | |  __/
 \___||___/\___\__,_| .__/ \___|  \__|_|_| |_| |_|\___|
                    |_|
`

const helpDescription = `
Serve Mandelbrot escape-time grids to the web explorer.

Highlights:
  - POST /api/mandelbrot returns the iteration count of every pixel as JSON.
  - GET /api/mandelbrot.png renders the same grid server-side.
  - GET /api/mandelbrot/ws streams rows over a websocket as they finish.
  - Rows are computed in parallel; per-request limits guard the CPU.
  - Configure via file, env (ESCAPETIME_*), or flags; limits reload live.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  escapetime --listen :8000 --allowed-origin http://localhost:3000
  escapetime --config $HOME/.escapetime/config.toml --log-format json
  escapetime render --center-x -0.743 --center-y 0.131 --zoom 200 -o seahorse.png
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "escapetime",
		Short:        "Serve Mandelbrot escape-time grids over HTTP",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Config file first (default $HOME/.escapetime/config.toml), then env, flags win.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			fileLoaded := false
			switch {
			case cfgFile != "" && cliconfig.FileExists(cfgFile):
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				fileLoaded = true
			case cfgPath != "":
				return fmt.Errorf("load config: %s does not exist", cfgPath)
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return fmt.Errorf("load env: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := log.New(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			logger.Info("configuration", log.Any("config", cfg), log.String("version", getVersion()))

			return serve(cmd.Context(), cfg, cfgFile, fileLoaded, changed, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.escapetime/config.toml)")
	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address to listen on")
	root.Flags().StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", cfg.AllowedOrigins, "origin allowed to call the API with credentials (repeatable, * for any)")

	root.Flags().DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "maximum time spent computing one grid")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "maximum time to drain requests on shutdown")
	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "row workers per computation (0 = one per CPU)")

	root.Flags().IntVar(&cfg.Limits.MaxWidth, "max-width", cfg.Limits.MaxWidth, "largest accepted grid width (0 = unlimited)")
	root.Flags().IntVar(&cfg.Limits.MaxHeight, "max-height", cfg.Limits.MaxHeight, "largest accepted grid height (0 = unlimited)")
	root.Flags().IntVar(&cfg.Limits.MaxPixels, "max-pixels", cfg.Limits.MaxPixels, "largest accepted width*height (0 = unlimited)")
	root.Flags().IntVar(&cfg.Limits.MaxIterations, "max-iterations", cfg.Limits.MaxIterations, "largest accepted iteration budget (0 = unlimited)")
	root.Flags().IntVar(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "maximum request body size")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console or json)")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload limits and log level when the config file changes")

	root.AddCommand(newRenderCmd())
	return root
}

// serve runs the HTTP server until ctx is canceled.
func serve(ctx context.Context, cfg cliconfig.Config, cfgFile string, fileLoaded bool, changed map[string]bool, logger *log.ZerologAdapter) error {
	limits := func() fractal.Limits { return cfg.Limits }

	if cfg.WatchConfig && fileLoaded {
		w := limitswatch.New(cfg.Limits, limitswatch.Config{
			Path:        cfgFile,
			Pinned:      cliconfig.PinnedFlags(changed),
			Logger:      logger,
			SetLogLevel: logger.SetLevel,
		})
		if err := w.Start(ctx); err != nil {
			logger.Warn("config watching disabled", log.Err(err))
		} else {
			defer w.Stop()
			limits = w.Limits
		}
	}

	handler := api.NewRouter(api.Options{
		Kernel:         fractal.NewKernel(fractal.WithWorkers(cfg.Workers)),
		Limits:         limits,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   int64(cfg.MaxBodyBytes),
	})

	srv := server.New(server.Config{
		Addr:            cfg.ListenAddr,
		Handler:         handler,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger, nil)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", log.Err(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
