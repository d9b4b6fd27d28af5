package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ggufcheck/internal/config"
	"github.com/samcharles93/ggufcheck/internal/gguf"
	"github.com/samcharles93/ggufcheck/internal/logger"
	"github.com/samcharles93/ggufcheck/internal/version"
)

const usageLine = "Usage: ggufcheck path/to/model.gguf"

var errUsage = errors.New("expected exactly one path argument")

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	err := newCommand(&opts, stdout, stderr).Run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintln(stderr, usageLine)
		return 1
	default:
		_, _ = fmt.Fprintf(stderr, "Validation error: %v\n", err)
		return 1
	}
}

type options struct {
	configPath string
	maxTensors uint64
	maxKV      uint64
	jsonOut    bool
	logLevel   string
	logFormat  string
}

func newCommand(opts *options, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "ggufcheck",
		Usage:     "Validate the header of a GGUF model file",
		ArgsUsage: "<path>",
		Version:   version.String(),
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are decided by run.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		OnUsageError: func(context.Context, *cli.Command, error, bool) error {
			return errUsage
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to config.yaml (default: user config dir)",
				Destination: &opts.configPath,
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
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result as a JSON object on stdout",
				Destination: &opts.jsonOut,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Value:       "warn",
				Destination: &opts.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (pretty, json, text)",
				Value:       "pretty",
				Destination: &opts.logFormat,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 1 {
				return errUsage
			}
			path := c.Args().First()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyConfig(c, cfg, opts)

			log, err := logger.Setup(stderr, logger.Options{
				Format: opts.logFormat,
				Level:  opts.logLevel,
				Color:  isTerminal(stderr),
			})
			if err != nil {
				return err
			}
			ctx = logger.WithContext(ctx, log)

			return validatePath(ctx, path, gguf.Limits{
				MaxTensorCount: opts.maxTensors,
				MaxKVCount:     opts.maxKV,
			}, opts, stdout)
		},
	}
}

// applyConfig fills options from the config file where the corresponding
// flag was not given explicitly.
func applyConfig(c *cli.Command, cfg config.Config, opts *options) {
	if cfg.MaxTensorCount != 0 && !c.IsSet("max-tensors") {
		opts.maxTensors = cfg.MaxTensorCount
	}
	if cfg.MaxKVCount != 0 && !c.IsSet("max-kv") {
		opts.maxKV = cfg.MaxKVCount
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		opts.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		opts.logFormat = cfg.LogFormat
	}
}

func validatePath(ctx context.Context, path string, limits gguf.Limits, opts *options, stdout io.Writer) error {
	log := logger.FromContext(ctx).With("path", path)
	log.Debug("validating header", "max_tensor_count", limits.MaxTensorCount, "max_kv_count", limits.MaxKVCount)

	h, err := gguf.Validator{Limits: limits}.ValidateFile(path)
	if err != nil {
		log.Debug("header rejected", "kind", string(gguf.KindOf(err)), "error", err)
	} else {
		log.Debug("header valid", "endianness", h.Endianness.String(), "tensors", h.TensorCount, "kv", h.KVCount)
	}

	if opts.jsonOut {
		if werr := writeJSON(stdout, gguf.NewReport(path, h, err)); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	return writeSummary(stdout, h)
}
