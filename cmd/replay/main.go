// cmd/replay/main.go
package main

import (
	"context"
	"flag"
	"os"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
)

func main() {
	// Frames go to stdout, so logs go to stderr.
	logger := logging.NewLoggerWithWriter(os.Stderr, logging.ParseLevel(os.Getenv("ORBITSIM_LOG_LEVEL")))
	ctx := context.Background()

	scriptPath := flag.String("script", "", "Path to replay script (JSON, YAML or TOML)")
	configPath := flag.String("config", os.Getenv("ORBITSIM_MISSIONS_FILE"), "Path to mission catalogue")
	missionName := flag.String("mission", "", "Mission to run (overrides the script)")
	seed := flag.Uint64("seed", 0, "Seed for the pseudo-random source (overrides the script)")
	flag.Parse()

	if *scriptPath == "" {
		logger.Error(ctx, "No script given", nil, "usage", "replay -script run.yaml")
		os.Exit(2)
	}

	script, err := LoadScript(*scriptPath)
	if err != nil {
		logger.Error(ctx, "Failed to load script", err, "script_path", *scriptPath)
		os.Exit(1)
	}
	if *missionName != "" {
		script.Mission = *missionName
	}
	if *seed != 0 {
		script.Seed = *seed
	}

	cat := config.DefaultConfig()
	if *configPath != "" {
		if cat, err = config.LoadConfig(*configPath); err != nil {
			logger.Error(ctx, "Failed to load mission catalogue", err, "config_path", *configPath)
			os.Exit(1)
		}
	}

	final, err := Replay(cat, script, os.Stdout)
	if err != nil {
		logger.Error(ctx, "Replay aborted", err, "script_path", *scriptPath)
		os.Exit(1)
	}

	logger.Info(ctx, "Replay finished",
		"mission", final.Mission,
		"ticks", final.Tick,
		"status", final.Status,
		"fuel", final.Fuel,
	)
}
