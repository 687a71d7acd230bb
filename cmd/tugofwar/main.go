// Command tugofwar runs a tug-of-war match. The same binary plays every
// part: the referee (default), one worker per player and the renderer,
// which the referee starts by re-executing itself.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	role := "referee"
	if len(args) > 0 {
		switch args[0] {
		case "referee", "worker", "render":
			role, args = args[0], args[1:]
		}
	}

	switch role {
	case "worker":
		return runWorker(args)
	case "render":
		return runRender(args)
	default:
		return runReferee(args)
	}
}

func newLogger(dev bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if dev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}
