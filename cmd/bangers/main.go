package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/bangers/pkg/config"
	"github.com/umputun/bangers/pkg/domain"
	"github.com/umputun/bangers/pkg/feed"
	"github.com/umputun/bangers/pkg/features"
	"github.com/umputun/bangers/pkg/ranking"
	"github.com/umputun/bangers/pkg/scorer"
	"github.com/umputun/bangers/server"
)

// Opts with all CLI options
type Opts struct {
	Config  string `short:"c" long:"config" env:"CONFIG" description:"configuration file (optional)"`
	FeedURL string `short:"f" long:"feed-url" env:"RSS_FEED_URL" description:"podcast RSS feed url, overrides config"`
	Model   string `short:"m" long:"model" env:"MODEL_PATH" description:"model artifact file, overrides config"`
	Listen  string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	Once    bool   `long:"once" description:"rank recent episodes once, print and exit"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	// .env is optional, real environment wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "can't load .env: %v\n", err)
	}

	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		setupLog(opts.Debug)
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, cfg.Feed.URL)
	log.Printf("[INFO] starting bangers version %s", revision)

	if err := run(context.Background(), opts, cfg); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// loadConfig reads optional config file, applies command line overrides and validates the result
func loadConfig(opts Opts) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if opts.FeedURL != "" {
		cfg.Feed.URL = opts.FeedURL
	}
	if opts.Model != "" {
		cfg.Model.Path = opts.Model
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run loads the model and either serves http api until ctx is canceled or a termination
// signal arrives, or ranks the feed once in --once mode
func run(ctx context.Context, opts Opts, cfg *config.Config) error {
	model, err := scorer.Load(ctx, scorer.Params{
		Backend: cfg.Model.Backend,
		Path:    cfg.Model.Path,
		KServe: scorer.KServeParams{
			Endpoint: cfg.Model.KServe.Endpoint,
			Model:    cfg.Model.KServe.Name,
			Input:    cfg.Model.KServe.Input,
			Output:   cfg.Model.KServe.Output,
			Classes:  cfg.Model.KServe.Classes,
			Timeout:  cfg.Model.KServe.Timeout,
		},
	})
	if err != nil {
		return err
	}
	info := model.Info()
	if !slices.Contains(info.Classes, cfg.Model.PositiveClass) {
		return fmt.Errorf("%w: positive class %q is not one of model classes %v", domain.ErrModelLoad, cfg.Model.PositiveClass, info.Classes)
	}
	log.Printf("[INFO] model %s %s loaded, backend %s, classes %v", info.Name, info.Version, info.Backend, info.Classes)

	client := feed.NewClient(feed.ClientParams{
		Timeout:   cfg.Feed.Timeout,
		UserAgent: cfg.Feed.UserAgent,
		Retries:   cfg.Feed.Attempts - 1,
	})
	svc := ranking.NewService(client, features.NewEngineer(), model, ranking.Params{PositiveClass: cfg.Model.PositiveClass})

	if opts.Once {
		return runOnce(ctx, svc, cfg.Feed.URL, os.Stdout)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// handle termination signals
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Print("[INFO] termination signal received")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	srv := server.New(cfg, svc, model, revision, opts.Debug)
	g.Go(func() error {
		return srv.Run(ctx)
	})

	return g.Wait()
}

// runOnce ranks recent episodes and prints them, highest probability first
func runOnce(ctx context.Context, svc *ranking.Service, feedURL string, w io.Writer) error {
	results, err := svc.Run(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("failed to rank episodes: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no recent episodes")
		return nil
	}
	for _, res := range results {
		fmt.Fprintf(w, "%.2f  %s  %s\n", math.RoundToEven(res.Probability*100)/100, res.Published.Format("2006-01-02 15:04 -07:00"), res.Title)
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	secrets := make([]string, 0, len(secs))
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
