package api

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/PecataP/K8S-SLSA/config"
	"github.com/PecataP/K8S-SLSA/internal/accesslog"
	"github.com/PecataP/K8S-SLSA/internal/taskqueue"
)

type Server struct {
	echo  *echo.Echo
	store *accesslog.Store
	queue *taskqueue.Queue
}

func NewServer(store *accesslog.Store, queue *taskqueue.Queue) *Server {
	return &Server{store: store, queue: queue}
}

func (s *Server) Start(cfg config.APIConf) error {
	log.Infof("greeter server starting on port %d...", cfg.Port)

	s.echo = s.makeEcho()

	err := s.echo.Start(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	const shutdownTimeout = time.Second * 10

	ctx, cancelTimeout := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelTimeout()

	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}

func (s *Server) makeEcho() *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(s.logRequests)

	handlers := NewHandlers()

	// Every method on every path gets the same greeting.
	e.Any("/", handlers.Greet)
	e.Any("/*", handlers.Greet)

	return e
}

// logRequests prints one line per request to stdout for container log
// collection, and queues an access record so the response path never waits
// on storage.
func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		req := c.Request()
		client := c.RealIP()
		log.WithField("client", client).
			Infof("%s - \"%s %s %s\"", client, req.Method, req.RequestURI, req.Proto)

		rec := accesslog.Record{
			Client: client,
			Method: req.Method,
			Path:   req.URL.Path,
			Proto:  req.Proto,
			Time:   time.Now(),
		}
		s.queue.Add(taskqueue.NewTask(func() error {
			return s.store.Record(rec)
		}, badger.ErrConflict))

		return err
	}
}
