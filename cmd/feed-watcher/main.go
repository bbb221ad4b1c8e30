package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stopsale/internal/config"
	"stopsale/internal/listener"
	"stopsale/internal/storage"
	"stopsale/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := util.NewLogger(cfg.AppEnv)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
