package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tugofwar/internal/worker"
)

func runWorker(args []string) int {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	team := fs.Int("team", 0, "Team index (0-based)")
	player := fs.Int("player", 0, "Player index within the team (0-based)")
	effort := fs.Float64("effort", 0, "Starting effort")
	seed := fs.Int64("seed", 0, "RNG seed (0 = pid based)")
	dev := fs.Bool("dev", false, "Human-readable development logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := newLogger(*dev).With(zap.Int("pid", os.Getpid()))
	defer log.Sync()

	if *seed == 0 {
		*seed = int64(os.Getpid())
	}
	w := worker.New(*team, *player, *effort, *seed, log)
	if err := worker.Run(context.Background(), w); err != nil {
		log.Error("worker failed", zap.Error(err))
		return 1
	}
	return 0
}
