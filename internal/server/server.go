// ABOUTME: Server wires the bot together and manages the HTTP lifecycle.
// ABOUTME: Composes sessions, routing, the orchestrator, and the platform boundary.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nheidloff/facebook-watson-bot/internal/actions"
	"github.com/nheidloff/facebook-watson-bot/internal/config"
	"github.com/nheidloff/facebook-watson-bot/internal/insights"
	"github.com/nheidloff/facebook-watson-bot/internal/ledger"
	"github.com/nheidloff/facebook-watson-bot/internal/messenger"
	"github.com/nheidloff/facebook-watson-bot/internal/orchestrator"
	"github.com/nheidloff/facebook-watson-bot/internal/routing"
	"github.com/nheidloff/facebook-watson-bot/internal/session"
	"github.com/nheidloff/facebook-watson-bot/internal/watson"
)

// Server is the assembled bot: the conversation core plus its HTTP surface.
type Server struct {
	config       *config.Config
	httpServer   *http.Server
	orchestrator *orchestrator.Orchestrator
	ledgerStore  *ledger.SQLiteStore
	logger       *slog.Logger
}

// New builds the full component graph from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sessions := session.NewStore()

	dialog := watson.NewDialogClient(cfg.Dialog.URL, cfg.Dialog.Username, cfg.Dialog.Password,
		cfg.Dialog.DialogID, cfg.Dialog.Timeout, logger)
	classifier := watson.NewClassifierClient(cfg.Classifier.URL, cfg.Classifier.Username,
		cfg.Classifier.Password, cfg.Classifier.Timeout, logger)
	sender := messenger.NewClient(cfg.Messenger.SendURL, cfg.Messenger.AccessToken,
		cfg.Server.SendTimeout, logger)

	registry := actions.NewRegistry()
	if cfg.Insights.URL != "" {
		search := insights.NewClient(cfg.Insights.URL, cfg.Insights.Timeout, logger)
		if err := registry.Register(actions.ShowTweets(search, sender, logger)); err != nil {
			return nil, fmt.Errorf("registering actions: %w", err)
		}
	}

	var ledgerStore *ledger.SQLiteStore
	var recorder orchestrator.TurnRecorder
	if cfg.Ledger.Enabled {
		var err error
		ledgerStore, err = ledger.NewSQLiteStore(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		recorder = ledgerStore
	}

	router := routing.NewEngine(sessions, classifier, logger)
	orch := orchestrator.New(sessions, router, dialog, sender, registry, recorder,
		cfg.Server.TurnTimeout, logger)

	webhook := messenger.NewWebhook(cfg.Messenger.VerifyToken, orch, logger)
	r := mux.NewRouter()
	webhook.Routes(r)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		orchestrator: orch,
		ledgerStore:  ledgerStore,
		logger:       logger.With("component", "server"),
	}, nil
}

// Run serves until the context is cancelled or the listener fails, then
// shuts down gracefully: stop accepting events, drain in-flight turns,
// close the ledger.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.Server.HTTPAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		s.logger.Error("server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", "error", err)
	}

	// Let queued turns finish so no accepted event is silently dropped.
	s.orchestrator.Drain()

	if s.ledgerStore != nil {
		if err := s.ledgerStore.Close(); err != nil {
			s.logger.Error("closing ledger failed", "error", err)
		}
	}

	return serveErr
}
