package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/db/searchdb"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/services/index"
	"github.com/meghashyamc/coursefetch/validation"
)

const shutdownTimeout = 10 * time.Second

type dependencies struct {
	kvDB         *kvdb.BoltDB
	searchDB     *searchdb.BleveDB
	docStore     *docstore.MongoStore
	ledger       *kvdb.Ledger
	indexService *index.Service
}

type server struct {
	router     *gin.Engine
	httpServer *http.Server
	deps       *dependencies
	validator  *validation.Validator
	logger     logger.Logger
	cfg        *config.Config
}

// Run serves the read API until ctx is cancelled or the process is interrupted.
func Run(ctx context.Context, logger logger.Logger, cfg *config.Config) error {
	s := &server{
		logger: logger,
		cfg:    cfg,
		deps:   &dependencies{},
	}
	defer s.closeDependencies()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.setupDependencies(ctx); err != nil {
		return err
	}
	s.setupRouter()

	errC := make(chan error, 1)
	s.setupHTTPServer(errC)

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	return s.shutdown()
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error
	s.deps.kvDB, err = kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.deps.searchDB, err = searchdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating searchDB", "err", err.Error())
		return err
	}
	s.deps.docStore, err = docstore.New(ctx, s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error connecting to document store", "err", err.Error())
		return err
	}
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	s.deps.ledger = kvdb.NewLedger(s.deps.kvDB)
	s.deps.indexService = index.New(ctx, s.logger, s.deps.searchDB, s.deps.docStore, s.deps.kvDB)

	return nil
}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))

	setupRoutes(router, s.logger, s.deps, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer(errC chan<- error) {

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", "err", err.Error())
			errC <- fmt.Errorf("listen: %w", err)
		}
	}()
}

func (s *server) shutdown() error {
	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err)
		return err
	}
	s.logger.Info("shut down http server successfully")
	return nil
}

func (s *server) closeDependencies() {
	if s.deps.docStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.deps.docStore.Close(ctx); err != nil {
			s.logger.Warn("error disconnecting from document store", "err", err.Error())
		}
	}
	if s.deps.searchDB != nil {
		if err := s.deps.searchDB.Close(); err != nil {
			s.logger.Warn("error closing searchDB", "err", err.Error())
		}
	}
	if s.deps.kvDB != nil {
		if err := s.deps.kvDB.Close(); err != nil {
			s.logger.Warn("error closing kvDB", "err", err.Error())
		}
	}
}
