package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ggufcheck/internal/api"
	"github.com/samcharles93/ggufcheck/internal/config"
	"github.com/samcharles93/ggufcheck/internal/gguf"
	"github.com/samcharles93/ggufcheck/internal/logger"
	"github.com/samcharles93/ggufcheck/internal/version"
)

const defaultAddr = "127.0.0.1:8089"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serveCmd(startServer).Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options holds the raw flag values.
type options struct {
	configPath  string
	addr        string
	modelsDir   string
	maxTensors  uint64
	maxKV       uint64
	logLevel    string
	logFormat   string
	readTimeout time.Duration
}

// settings is what the server runs with after config and flags are merged.
type settings struct {
	Addr        string
	ModelsDir   string
	Limits      gguf.Limits
	LogLevel    string
	LogFormat   string
	ReadTimeout time.Duration
}

// resolve merges the config file under the flags: a flag given on the
// command line always wins, otherwise a non-zero config value replaces the
// flag default.
func resolve(cmd *cli.Command, cfg config.Config, opts options) settings {
	s := settings{
		Addr:        opts.addr,
		ModelsDir:   opts.modelsDir,
		Limits:      cfg.Limits(),
		LogLevel:    opts.logLevel,
		LogFormat:   opts.logFormat,
		ReadTimeout: opts.readTimeout,
	}
	if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
		s.Addr = cfg.ServerAddress
	}
	if cfg.ModelsDir != "" && !cmd.IsSet("models-dir") {
		s.ModelsDir = cfg.ModelsDir
	}
	if cmd.IsSet("max-tensors") {
		s.Limits.MaxTensorCount = opts.maxTensors
	}
	if cmd.IsSet("max-kv") {
		s.Limits.MaxKVCount = opts.maxKV
	}
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		s.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		s.LogFormat = cfg.LogFormat
	}
	return s
}

func serveCmd(start func(context.Context, settings) error) *cli.Command {
	var opts options

	return &cli.Command{
		Name:    "ggufd",
		Usage:   "Serve GGUF header validation over HTTP",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config.yaml (default: user config dir)",
				Destination: &opts.configPath,
			},
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       defaultAddr,
				Destination: &opts.addr,
			},
			&cli.StringFlag{
				Name:        "models-dir",
				Aliases:     []string{"path"},
				Usage:       "directory of .gguf files listed by GET /v1/models",
				Destination: &opts.modelsDir,
			},
			&cli.Uint64Flag{
				Name:        "max-tensors",
				Usage:       "sanity ceiling for the declared tensor count",
				Value:       gguf.DefaultMaxTensorCount,
				Destination: &opts.maxTensors,
			},
			&cli.Uint64Flag{
				Name:        "max-kv",
				Usage:       "sanity ceiling for the declared metadata entry count",
				Value:       gguf.DefaultMaxKVCount,
				Destination: &opts.maxKV,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "info",
				Destination: &opts.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (pretty, json, text)",
				Value:       "json",
				Destination: &opts.logFormat,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &opts.readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			s := resolve(cmd, cfg, opts)

			log, err := logger.Setup(os.Stderr, logger.Options{Format: s.LogFormat, Level: s.LogLevel})
			if err != nil {
				return err
			}
			return start(logger.WithContext(ctx, log), s)
		},
	}
}

func startServer(ctx context.Context, s settings) error {
	log := logger.FromContext(ctx)

	server := api.NewServer(api.Options{
		Limits:    s.Limits,
		ModelsDir: s.ModelsDir,
		Logger:    log.With("component", "api"),
	})
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	server.Register(e)

	log.Info("starting server", "address", s.Addr, "models_dir", s.ModelsDir,
		"max_tensor_count", s.Limits.MaxTensorCount, "max_kv_count", s.Limits.MaxKVCount)
	sc := echo.StartConfig{
		Address: s.Addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = s.ReadTimeout
			return nil
		},
	}
	return sc.Start(ctx, e)
}
