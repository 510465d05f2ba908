package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/brensch/broadside/config"
	"github.com/brensch/broadside/feed"
	"github.com/brensch/broadside/game"
	"github.com/brensch/broadside/logging"
	"github.com/brensch/broadside/selfplay"
	"github.com/brensch/broadside/store"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	seed := flag.Int64("seed", 1, "Placement seed")
	improvements := flag.String("improvements", "", "If set, each side plays its latest adopted strategy from this log")
	boards := flag.Bool("boards", true, "Render the board after every resolve phase")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	feedAddr := flag.String("feed-addr", "", "If set, stream board snapshots over a websocket at this address under /feed")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(os.Stderr, level, logging.FormatConsole)
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	params := [2]game.Params{game.ParamsFromWeights(cfg.Weights), game.ParamsFromWeights(cfg.Weights)}
	if *improvements != "" {
		entries, err := store.LoadImprovements(*improvements)
		if err != nil {
			log.Fatalf("Failed to read improvements: %v", err)
		}
		for _, side := range []game.Side{game.SideA, game.SideB} {
			if im, ok := store.LatestBest(entries, side); ok {
				params[side] = im.Params()
				logger.Info("using adopted strategy", "side", side.String(), "episode", im.Episode, "value", im.Value)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	observers := []selfplay.Observer{&selfplay.Narrator{Logger: logger, Boards: *boards}}
	if *feedAddr != "" {
		hub := feed.NewHub()
		hub.Logger = logger
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.Handle("/feed", hub)
		srv := &http.Server{Addr: *feedAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("feed server stopped", "error", err)
			}
		}()
		defer srv.Close()
		observers = append(observers, feed.BoardPublisher{Hub: hub})
		logger.Info("feed listening", "addr", *feedAddr, "path", "/feed")
	}

	m, err := selfplay.NewMatch(cfg, nil, params[0], params[1], *seed, observers...)
	if err != nil {
		log.Fatalf("Failed to set up match: %v", err)
	}
	res, err := m.Run(ctx)
	if err != nil {
		log.Fatalf("Match failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal(err)
	}
}
