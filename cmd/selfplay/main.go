package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/feed"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/logging"
	"github.com/brensch/broadside/search"
	"github.com/brensch/broadside/store"
)

type options struct {
	configPath       string
	episodes         int
	workers          int
	seed             int64
	outDir           string
	episodesPerFlush int
	improvements     string
	feedAddr         string
	tui              bool
	logLevel         string
	logFormat        string
	logFile          string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML config file (defaults are used when empty)")
	flag.IntVar(&o.episodes, "episodes", 0, "If > 0, overrides search.episodes")
	flag.IntVar(&o.workers, "workers", 0, "If > 0, overrides search.workers")
	flag.Int64Var(&o.seed, "seed", 0, "If != 0, overrides search.seed")
	flag.StringVar(&o.outDir, "out-dir", "data/episodes", "Output directory for episode parquet batches")
	flag.IntVar(&o.episodesPerFlush, "episodes-per-flush", 200, "Episodes to buffer per parquet file")
	flag.StringVar(&o.improvements, "improvements", "data/improvements.jsonl", "Append-only log of adopted strategies (empty disables)")
	flag.StringVar(&o.feedAddr, "feed-addr", "", "If set, serve a websocket progress feed at this address under /feed")
	flag.BoolVar(&o.tui, "tui", false, "Show a terminal dashboard instead of streaming logs")
	flag.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	flag.StringVar(&o.logFormat, "log-format", logging.FormatConsole, "console, pretty, json or text")
	flag.StringVar(&o.logFile, "log-file", "", "Write logs here instead of stderr (defaults to selfplay.log with -tui)")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "selfplay: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	var logOut io.Writer = os.Stderr
	if o.logFile == "" && o.tui {
		o.logFile = "selfplay.log"
	}
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, level, o.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	trainer, err := search.NewTrainer(cfg)
	if err != nil {
		return err
	}
	trainer.Logger = logger

	var improvements *store.ImprovementLog
	if o.improvements != "" {
		improvements, err = store.OpenImprovementLog(o.improvements)
		if err != nil {
			return err
		}
		defer improvements.Close()
	}

	var hub *feed.Hub
	if o.feedAddr != "" {
		hub = feed.NewHub()
		hub.Logger = logger
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.Handle("/feed", hub)
		srv := &http.Server{Addr: o.feedAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("feed server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("feed listening", "addr", o.feedAddr, "path", "/feed")
	}

	rows := make(chan store.EpisodeRow, cfg.Search.Workers*4)
	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(logger, o.outDir, o.episodesPerFlush, rows)
		close(writerDone)
	}()

	updates := make(chan search.Episode, cfg.Search.Workers*2)
	sink := func(ep search.Episode) error {
		row := store.RowFromEpisode(ep)
		rows <- row
		for side := range ep.Adopted {
			if !ep.Adopted[side] {
				continue
			}
			im := store.NewImprovement(game.Side(side), ep.Index, ep.BestValue[side], ep.Params[side])
			if improvements != nil {
				if err := improvements.Append(im); err != nil {
					return err
				}
			}
			if hub != nil {
				hub.Publish(feed.MsgTypeBest, im)
			}
		}
		if hub != nil {
			hub.Publish(feed.MsgTypeEpisode, row)
		}
		if o.tui {
			forwardEpisode(ctx, updates, ep)
		}
		return nil
	}

	logger.Info("starting self-play search",
		"episodes", cfg.Search.Episodes,
		"workers", cfg.Search.Workers,
		"seed", cfg.Search.Seed,
		"grid", cfg.GridSize,
		"out_dir", o.outDir,
	)

	var runErr error
	if o.tui {
		result, done := runInBackground(func() error {
			return trainer.Run(ctx, cfg.Search.Episodes, sink)
		})
		p := tea.NewProgram(newModel(cfg.Search.Episodes, updates, done), tea.WithAltScreen())
		final, err := p.Run()
		if err != nil || !final.(model).finished {
			// Quit from the keyboard: stop after the current batch.
			cancel()
		}
		runErr = <-result
		if err != nil && runErr == nil {
			runErr = fmt.Errorf("tui: %w", err)
		}
	} else {
		runErr = trainer.Run(ctx, cfg.Search.Episodes, sink)
	}

	close(rows)
	<-writerDone

	for _, side := range []game.Side{game.SideA, game.SideB} {
		best, value, ok := trainer.Agent(side).Best()
		logger.Info("final strategy", "side", side.String(), "known", ok, "value", value, "params", best.String())
	}

	if errors.Is(runErr, context.Canceled) {
		logger.Info("search interrupted")
		return nil
	}
	return runErr
}

// runInBackground runs fn on its own goroutine. Its error is delivered once
// on result, after which done is closed so any number of waiters can see it.
func runInBackground(fn func() error) (result <-chan error, done <-chan struct{}) {
	res := make(chan error, 1)
	fin := make(chan struct{})
	go func() {
		res <- fn()
		close(fin)
	}()
	return res, fin
}

// forwardEpisode hands ep to the dashboard, waiting for it to catch up so
// every episode is counted. It gives up when ctx is done.
func forwardEpisode(ctx context.Context, updates chan<- search.Episode, ep search.Episode) {
	select {
	case updates <- ep:
	case <-ctx.Done():
	}
}

func loadConfig(o options) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		cfg, err = config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	if o.episodes > 0 {
		cfg.Search.Episodes = o.episodes
	}
	if o.workers > 0 {
		cfg.Search.Workers = o.workers
	}
	if o.seed != 0 {
		cfg.Search.Seed = o.seed
	}
	return cfg, cfg.Validate()
}

func parquetWriterLoop(logger *slog.Logger, outDir string, perFlush int, in <-chan store.EpisodeRow) {
	if perFlush <= 0 {
		perFlush = 200
	}
	w, err := store.NewBatchWriter(outDir, perFlush)
	if err != nil {
		logger.Error("parquet writer unavailable, episodes will not be saved", "dir", outDir, "error", err)
		for range in {
		}
		return
	}
	logBatch := func(b *store.Batch, err error, final bool) {
		switch {
		case err != nil:
			logger.Error("parquet flush failed", "final", final, "error", err)
		case b != nil:
			logger.Info("parquet flush ok", "path", b.Path, "episodes", b.Rows, "final", final)
		}
	}
	for row := range in {
		b, err := w.Write(row)
		logBatch(b, err, false)
	}
	b, err := w.Close()
	logBatch(b, err, true)
}
