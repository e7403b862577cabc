// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/rmvbconv/internal/api"
	"github.com/ZSC714725/rmvbconv/internal/config"
	"github.com/ZSC714725/rmvbconv/internal/convert"
	"github.com/ZSC714725/rmvbconv/internal/display"
	"github.com/ZSC714725/rmvbconv/internal/ffmpeg"
	"github.com/ZSC714725/rmvbconv/internal/logger"
	"github.com/ZSC714725/rmvbconv/internal/metrics"
	"github.com/ZSC714725/rmvbconv/internal/process"
	"github.com/ZSC714725/rmvbconv/internal/task"
)

// errFailed marks a run whose failure was already reported to the user
var errFailed = errors.New("conversion failed")

type rootOptions struct {
	output     string
	quality    qualityValue
	force      bool
	batch      bool
	statusAddr string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{quality: qualityValue(config.Default().Convert.Quality)}

	root := &cobra.Command{
		Use:           "rmvbconv <input>",
		Short:         "RMVB to MP4 video converter",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], opts)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to YAML config file")
	pf.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	pf.String("ffprobe", "", "FFprobe binary path (default: next to ffmpeg, then $PATH)")
	pf.String("log-file", "", "append-only log file (overrides config)")
	pf.String("log-level", "", "log level: debug, info, warn, error")

	f := root.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file, or output directory with --batch")
	f.VarP(&opts.quality, "quality", "q", "conversion quality: low, medium, high")
	f.BoolVarP(&opts.force, "force", "f", false, "overwrite existing output files")
	f.BoolVar(&opts.batch, "batch", false, "convert every RMVB file in the input directory")
	f.StringVar(&opts.statusAddr, "status-addr", "", "serve the status API on this address while converting")

	root.AddCommand(newInfoCommand())

	return root
}

// app is what every command needs after startup
type app struct {
	config *config.Config
	logger logger.Logger
	ffmpeg ffmpeg.FFmpeg
	closer io.Closer
}

func (a *app) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

// loadConfig reads --config and applies the persistent flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"ffmpeg", &cfg.FFmpeg.Path},
		{"ffprobe", &cfg.FFmpeg.ProbePath},
		{"log-file", &cfg.Log.File},
		{"log-level", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v, _ := cmd.Flags().GetString(o.flag); v != "" {
			*o.target = v
		}
	}

	return cfg, nil
}

// setup loads the configuration, opens the log and checks ffmpeg. Any error
// here is fatal.
func setup(cmd *cobra.Command, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, closer, err := logger.New("", logger.Config{
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:      cfg.FFmpeg.Path,
		ProbeBinary: cfg.FFmpeg.ProbePath,
		Logger:      log,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("FFmpeg not found or unusable, make sure it is installed and on PATH: %w", err)
	}

	sk := ff.Skills()
	log.Debug("using %s (version %s)", ff.Binary(), sk.FFmpeg.Version)
	for _, enc := range []string{"libx264", "aac"} {
		if !sk.HasEncoder(enc) {
			log.Warn("encoder %s not reported by %s, conversions will likely fail", enc, ff.Binary())
		}
	}

	return &app{config: cfg, logger: log, ffmpeg: ff, closer: closer}, nil
}

func runConvert(cmd *cobra.Command, input string, opts *rootOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("quality") {
		cfg.Convert.Quality = opts.quality.String()
	}
	if opts.force {
		cfg.Convert.Overwrite = true
	}
	if opts.statusAddr != "" {
		cfg.Status.Bind = opts.statusAddr
	}

	a, err := setup(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store := task.NewStore(process.NewSysMonitor)
	m := metrics.New()

	conv := convert.New(convert.Config{
		Binary:   a.ffmpeg.Binary(),
		Prober:   a.ffmpeg.Prober(),
		Store:    store,
		Observer: metrics.NewObserver(m),
		Logger:   a.logger,
	})

	if cfg.Status.Bind != "" {
		router := api.NewRouter(api.NewHandler(store, a.ffmpeg), m.Handler())
		srv, err := api.Listen(cfg.Status.Bind, router, a.logger.With("api"))
		if err != nil {
			return fmt.Errorf("status API: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if opts.batch {
		return runBatch(ctx, out, conv, input, opts.output, cfg)
	}

	req := convert.Request{
		Input:     input,
		Output:    opts.output,
		Quality:   cfg.Convert.Quality,
		Overwrite: cfg.Convert.Overwrite,
	}

	started := time.Now()
	bar := display.NewBar(out)
	if err := conv.Run(ctx, req, bar.Update); err != nil {
		fmt.Fprintln(out, "conversion failed!")
		return errFailed
	}

	output := req.Output
	if output == "" {
		output = convert.OutputPath(input)
	}
	fmt.Fprintf(out, "conversion succeeded! %s (%s, %s)\n",
		output, display.FileSize(output), display.Duration(time.Since(started).Seconds()))
	return nil
}

func runBatch(ctx context.Context, out io.Writer, conv *convert.Converter, inDir, outDir string, cfg *config.Config) error {
	result := conv.Batch(ctx, convert.BatchRequest{
		InputDir:  inDir,
		OutputDir: outDir,
		Quality:   cfg.Convert.Quality,
		Overwrite: cfg.Convert.Overwrite,
		OnFile: func(input, output string, err error) {
			name := filepath.Base(input)
			switch {
			case err == nil:
				fmt.Fprintf(out, "[ok]   %s -> %s (%s)\n", name, output, display.FileSize(output))
			case convert.IsSkipped(err):
				fmt.Fprintf(out, "[skip] %s: %v\n", name, err)
			default:
				fmt.Fprintf(out, "[fail] %s: %v\n", name, err)
			}
		},
	})

	fmt.Fprintf(out, "batch conversion complete, converted %d of %d files\n", len(result.Succeeded), result.Total())

	// 任何失败或跳过的文件都让退出码为 1
	if len(result.Failed) > 0 {
		return errFailed
	}
	return nil
}
