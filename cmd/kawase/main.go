package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-multierror"
	"github.com/robotomize/kawase"
	"github.com/robotomize/kawase/internal/config"
	"github.com/robotomize/kawase/internal/hashio"
	"github.com/robotomize/kawase/internal/logging"
	"github.com/robotomize/kawase/internal/storage"
	"github.com/robotomize/kawase/internal/storage/memory"
	"github.com/robotomize/kawase/internal/storage/redis"
	"github.com/robotomize/kawase/internal/storage/sqlite"
	"github.com/robotomize/kawase/provider"
	"github.com/robotomize/kawase/provider/cae"
	"github.com/robotomize/kawase/provider/ecb"
	"github.com/robotomize/kawase/provider/frankfurter"
	"github.com/robotomize/kawase/provider/httputil"
	"github.com/robotomize/kawase/session"
)

var flagSet = flag.NewFlagSet("kawase", flag.ContinueOnError)

var (
	configPath = flagSet.String("config", "", "path to a yaml config file")
	inMemory   = flagSet.Bool("memory", false, "keep rates in memory only, nothing is saved")
)

func main() {
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	ctx := logging.WithLogger(context.Background(), logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		logger.Error("session", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	logger := logging.FromContext(ctx)

	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	rates, digests, closeFn, err := newStores(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Error("close storage", slog.Any("error", err))
		}
	}()

	detector, err := kawase.NewChangeDetector(hashio.SHA256HashFunc())
	if err != nil {
		return err
	}

	startingCurrency, err := cfg.StartingCurrency()
	if err != nil {
		return err
	}

	startingAmount, err := cfg.StartingAmount()
	if err != nil {
		return err
	}

	ctrl, err := session.New(session.Config{
		Source:   source,
		Rates:    rates,
		Digests:  digests,
		Detector: detector,
		Merge: kawase.MergeOptions{
			StartingCurrency: startingCurrency,
			StartingAmount:   startingAmount,
		},
		RefreshInterval: cfg.Session.RefreshInterval,
	})
	if err != nil {
		return err
	}

	p := &printer{w: out}
	ctrl.Subscribe(p.print)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ctrl.Run(ctx)
	}()

	if err := ctrl.Dispatch(ctx, session.RequestRates{}); err != nil {
		return err
	}

	fmt.Fprintln(out, usage)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}

			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}

			switch {
			case cmd.quit:
				break loop
			case cmd.help:
				fmt.Fprintln(out, usage)
			case cmd.show:
				info, ok := infoOf(ctrl.State())
				if !ok {
					fmt.Fprintln(out, "no rates yet")
					continue
				}

				if err := writeTable(out, info.Rates); err != nil {
					return err
				}
				fmt.Fprintln(out, describeSelection(info.Selection))
			case cmd.event != nil:
				if err := ctrl.Dispatch(ctx, cmd.event); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}
		}
	}

	cancel()

	return <-errCh
}

func newSource(cfg config.Config) (provider.Source, error) {
	client := httputil.NewClient(cfg.Provider.Timeout)

	var source provider.Source
	switch cfg.Provider.Name {
	case config.ProviderECB:
		source = ecb.NewSource(client)
	case config.ProviderCAE:
		source = cae.NewSource(client)
	default:
		if cfg.Provider.URL == "" {
			source = frankfurter.NewSource(client)
			break
		}

		u, err := url.Parse(cfg.Provider.URL)
		if err != nil {
			return nil, fmt.Errorf("provider url: %w", err)
		}
		source = frankfurter.NewSourceWithURL(client, *u)
	}

	if cfg.Provider.RetryNum > 0 {
		source = provider.WithRetry(source, cfg.Provider.RetryNum, cfg.Provider.RetryDelay)
	}

	return source, nil
}

func newStores(cfg config.Config) (storage.RateStore, storage.DigestStore, func() error, error) {
	if *inMemory {
		s := memory.New()
		return s, s, func() error { return nil }, nil
	}

	db, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}

	if cfg.Storage.DigestBackend != config.DigestRedis {
		return db, db, db.Close, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Storage.RedisAddr,
		Password: cfg.Storage.RedisPassword,
		DB:       cfg.Storage.RedisDB,
	})

	closeFn := func() error {
		var result error
		if err := client.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close redis: %w", err))
		}

		if err := db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close sqlite: %w", err))
		}

		return result
	}

	return db, redis.NewDigestStore(client, ""), closeFn, nil
}
