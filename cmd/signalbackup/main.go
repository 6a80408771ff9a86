package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/signalbackup/internal/app"
	"github.com/dmitrijs2005/signalbackup/internal/buildinfo"
	"github.com/dmitrijs2005/signalbackup/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stderr)

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	application, err := app.NewApp(cfg, os.Stdout, os.Stderr)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	if err := application.Run(ctx); err != nil {
		os.Exit(1)
	}
}
