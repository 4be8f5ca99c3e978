package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/PecataP/K8S-SLSA/config"
	"github.com/PecataP/K8S-SLSA/internal/accesslog"
	"github.com/PecataP/K8S-SLSA/internal/api"
	"github.com/PecataP/K8S-SLSA/internal/taskqueue"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	// Container runtimes collect stdout as the log source.
	log.SetOutput(os.Stdout)

	log.Info("greeter service init...")
	defer log.Info("greeter service stop")

	ctx, cancelCancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	if err := godotenv.Load(".env"); err != nil {
		var pathError *fs.PathError
		if !errors.As(err, &pathError) {
			log.Fatalf("parsing .env file: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	opt := badger.DefaultOptions("").WithInMemory(true)
	db, err := badger.Open(opt)
	if err != nil {
		log.Fatalf("failed to open badger %v", err)
	}
	defer db.Close()

	store := accesslog.NewStore(db)
	queue := taskqueue.NewQueue()
	defer queue.Close()

	server := api.NewServer(store, queue)

	go func() {
		if err := server.Start(cfg.APIConf); err != nil && (!errors.Is(err, http.ErrServerClosed)) {
			log.WithError(err).Fatal("shutting down the server")
		}
	}()

	waiting := make(chan struct{})
	go func() {
		defer close(waiting)
		select {
		case <-quit:
			log.Info("Gracefully stopping…")
			cancelCancel()

			if err := server.Stop(); err != nil {
				log.WithError(err).Fatal()
			}
		case <-ctx.Done():
			return
		}
	}()
	<-waiting
	log.Info("🏁 finished.")
}
