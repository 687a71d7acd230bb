package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"net/http"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/DoyleJ11/tugofwar/internal/arena"
	"github.com/DoyleJ11/tugofwar/internal/config"
	"github.com/DoyleJ11/tugofwar/internal/engine"
	"github.com/DoyleJ11/tugofwar/internal/feed"
	"github.com/DoyleJ11/tugofwar/internal/httpapi"
	"github.com/DoyleJ11/tugofwar/internal/notify"
	"github.com/DoyleJ11/tugofwar/internal/referee"
	"github.com/DoyleJ11/tugofwar/internal/supervisor"
	"github.com/DoyleJ11/tugofwar/internal/telemetry"
)

// shutdownBudget bounds how long the referee waits for its children after
// the match, on top of the renderer's final screen.
const shutdownBudget = 5 * time.Second

func runReferee(args []string) int {
	fs := flag.NewFlagSet("referee", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to the key=value match config (required)")
	seed := fs.Int64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := fs.String("output-dir", "", "Directory for stats.csv, config.yaml and result.yaml")
	spectatorAddr := fs.String("spectator-addr", "", "Listen address for the read-only spectator feed (empty = off)")
	headless := fs.Bool("headless", false, "Do not start the renderer")
	dev := fs.Bool("dev", false, "Human-readable development logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	matchID := uuid.NewString()
	log := newLogger(*dev).With(zap.String("match_id", matchID))
	defer log.Sync()

	if *configPath == "" {
		log.Error("missing -config")
		return 2
	}
	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Error("failed to load config", zap.Error(err))
		return 1
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	out, err := telemetry.NewOutput(*outputDir)
	if err != nil {
		log.Error("failed to create output", zap.Error(err))
		return 1
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		log.Warn("failed to write config snapshot", zap.Error(err))
	}

	region, err := arena.Create(arena.DefaultPath(matchID), cfg.NumTeams, cfg.PlayersPerTeam)
	if err != nil {
		log.Error("failed to allocate arena", zap.Error(err))
		return 1
	}
	defer region.Close()

	pubs := []arena.Publisher{region}
	var spectators *feed.Feed
	if *spectatorAddr != "" {
		spectators = feed.New(ctx, log)
		pubs = append(pubs, spectators)
	}

	// sup is assigned before Run starts, which is the first caller of Alive.
	var sup *supervisor.Supervisor
	ref := referee.New(referee.Options{
		Config:     cfg,
		Rand:       rand.New(rand.NewSource(rngSeed)),
		Notifier:   notify.SignalBus{},
		Publishers: pubs,
		Output:     out,
		Alive:      func(pid int) bool { return sup.Running(pid) },
	}, log)

	var extra []string
	if *dev {
		extra = []string{"-dev"}
	}
	sup = supervisor.New(context.Background(), supervisor.Options{
		Teams:         cfg.NumTeams,
		Players:       cfg.PlayersPerTeam,
		Efforts:       ref.Efforts(),
		Seed:          rngSeed,
		Headless:      *headless,
		ArenaPath:     region.Path(),
		RopeThreshold: cfg.RopeThreshold,
		ExtraArgs:     extra,
	}, log)
	if err := sup.Spawn(); err != nil {
		log.Error("failed to start players", zap.Error(err))
		return 1
	}
	ref.AttachPIDs(sup.PIDs())

	log.Info("match configured",
		zap.Int64("seed", rngSeed),
		zap.Int("teams", cfg.NumTeams),
		zap.Int("players_per_team", cfg.PlayersPerTeam),
		zap.Duration("duration", cfg.Duration()),
		zap.String("arena", region.Path()))

	g, gctx := errgroup.WithContext(ctx)
	matchOver := make(chan struct{})
	var res engine.Result
	g.Go(func() error {
		defer close(matchOver)
		var err error
		res, err = ref.Run(gctx)
		return err
	})
	if spectators != nil {
		srv := &http.Server{Addr: *spectatorAddr, Handler: httpapi.SetupRoutes(spectators, log)}
		g.Go(func() error {
			log.Info("spectator feed listening", zap.String("addr", *spectatorAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-matchOver:
			case <-gctx.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}
	runErr := g.Wait()

	if err := out.WriteResult(matchID, res); err != nil {
		log.Warn("failed to write result", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), supervisor.DefaultRendererGrace+shutdownBudget)
	defer cancel()
	if err := sup.Shutdown(sctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}

	if runErr != nil {
		log.Error("match did not finish", zap.Error(runErr))
		return 1
	}
	return 0
}
