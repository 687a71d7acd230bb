package main

import (
	"context"
	"flag"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/DoyleJ11/tugofwar/internal/arena"
	"github.com/DoyleJ11/tugofwar/internal/render"
)

func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	path := fs.String("arena", "", "Path of the shared arena file")
	threshold := fs.Float64("threshold", 100, "Rope threshold used to scale the scene")
	dev := fs.Bool("dev", false, "Human-readable development logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := newLogger(*dev).With(zap.String("role", "render"))
	defer log.Sync()

	region, err := arena.Open(*path)
	if err != nil {
		log.Error("failed to open arena", zap.Error(err))
		return 1
	}
	defer region.Close()

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer stop()

	if err := render.Run(ctx, region, *threshold, log); err != nil {
		log.Error("renderer failed", zap.Error(err))
		return 1
	}
	return 0
}
