// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of passkeyd.
//
// passkeyd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package server assembles the passkey HTTP daemon: stores, ceremony
// service, token signer, router and the expired-challenge sweeper.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passkeyd/passkeyd/internal/config"
	"github.com/passkeyd/passkeyd/internal/metrics"
	"github.com/passkeyd/passkeyd/internal/storage/sqlite"
	"github.com/passkeyd/passkeyd/pkg/passkey"
	passkeyhttp "github.com/passkeyd/passkeyd/pkg/passkey/http"
	"github.com/passkeyd/passkeyd/pkg/session"
)

// sweepInterval is how often the expired-challenge sweeper runs. Expiry is
// also enforced lazily at verify time; the sweeper only reclaims storage.
const sweepInterval = 10 * time.Minute

// Server is the assembled passkey daemon.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	challenges passkey.ChallengeStore
	store      *sqlite.Store
	stop       chan struct{}
}

// New builds a Server from the validated configuration.
func New(cfg *config.Config) (*Server, error) {
	logger := newLogger(cfg.Logging)

	var users passkey.UserStore
	var creds passkey.CredentialStore
	var challenges passkey.ChallengeStore
	var store *sqlite.Store

	switch cfg.Storage.Driver {
	case "sqlite":
		var err error
		store, err = sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		users = store.Users()
		creds = store.Credentials()
		challenges = store.Challenges()
	default:
		memUsers := passkey.NewMemoryUserStore()
		users = memUsers
		creds = passkey.NewMemoryCredentialStore(memUsers)
		challenges = passkey.NewMemoryChallengeStore()
	}

	issuer, err := session.NewIssuer([]byte(cfg.Session.Secret))
	if err != nil {
		return nil, err
	}
	verifier, err := session.NewVerifier([]byte(cfg.Session.Secret))
	if err != nil {
		return nil, err
	}

	service, err := passkey.NewService(passkey.ServiceParams{
		Config: &passkey.Config{
			RPDisplayName:          cfg.RelyingParty.DisplayName,
			RPID:                   cfg.RelyingParty.ID,
			RPOrigin:               cfg.RelyingParty.Origin,
			ChallengeTTL:           cfg.RelyingParty.ChallengeTTL.Std(),
			RegistrationTokenTTL:   cfg.Session.RegistrationTTL.Std(),
			AuthenticationTokenTTL: cfg.Session.AuthenticationTTL.Std(),
		},
		UserStore:       users,
		CredentialStore: creds,
		ChallengeStore:  challenges,
		TokenIssuer:     issuer,
	})
	if err != nil {
		return nil, err
	}

	handler := passkeyhttp.NewHandler(service, verifier).
		WithLogger(logger).
		WithObserver(metrics.Observer{}).
		WithSecureCookies(cfg.Server.SecureCookies)
	gate := passkeyhttp.NewAccessGate(verifier).
		WithLoginURL(cfg.Server.LoginURL).
		WithSecureCookies(cfg.Server.SecureCookies)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	passkeyhttp.Mount(router, handler, gate)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		challenges: challenges,
		store:      store,
		stop:       make(chan struct{}),
	}, nil
}

// Start serves HTTP and runs the challenge sweeper until Stop is called.
// It blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	go s.sweepLoop()

	s.logger.Info("server listening", "addr", s.httpServer.Addr,
		"rp_id", s.cfg.RelyingParty.ID, "storage", s.cfg.Storage.Driver)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server and closes storage.
func (s *Server) Stop(ctx context.Context) error {
	close(s.stop)
	err := s.httpServer.Shutdown(ctx)
	if s.store != nil {
		if closeErr := s.store.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// sweepLoop periodically reclaims expired challenges.
func (s *Server) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.challenges.DeleteExpired(ctx, time.Now().UTC()); err != nil {
				s.logger.Warn("challenge sweep failed", "error", err)
			}
			cancel()
		}
	}
}

// newLogger builds the process logger from logging config and installs it as
// the slog default.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
