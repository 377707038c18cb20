package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophlicense/internal/logging"
	"github.com/dmitrijs2005/gophlicense/internal/server"
	"github.com/dmitrijs2005/gophlicense/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}

}
