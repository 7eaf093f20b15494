package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/daykeeper/internal/client/cli"
	"github.com/dmitrijs2005/daykeeper/internal/client/config"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// No device calendar provider on this platform; the mirror command is a
	// no-op until one is plugged in.
	app, err := cli.NewApp(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
