package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/cloudacct/accountsvc/config"
	"github.com/cloudacct/accountsvc/internal/db"
	"github.com/cloudacct/accountsvc/internal/handlers"
	"github.com/cloudacct/accountsvc/internal/mq"
	"github.com/cloudacct/accountsvc/internal/notify"
	"github.com/cloudacct/accountsvc/internal/secrets"
	"github.com/cloudacct/accountsvc/internal/services"
	"github.com/cloudacct/accountsvc/internal/storage"
	"github.com/cloudacct/accountsvc/internal/store"
	"github.com/cloudacct/accountsvc/internal/token"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Broker
}

// New resolves encrypted configuration, connects every dependency, and
// builds the router. Secret-decryption failure aborts startup: there is
// no degraded mode without credentials.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if err := resolveSecrets(ctx, &cfg); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	codec, err := token.New(cfg.Token)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	mailer, err := notify.NewSMTPMailer(cfg.Mail)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var broker mq.Broker
	if !cfg.TestMode {
		broker, err = mq.NewBroker(ctx, cfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("connect broker: %w", err)
		}
	}
	dispatcher := notify.NewDispatcher(mailer, broker, cfg.Broker.EventTopic, cfg.TestMode, logger)

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	accountRepo := store.NewAccountRepository(dbConn)
	eventRepo := store.NewEventRepository(dbConn)

	accountService := services.NewAccountService(
		accountRepo,
		eventRepo,
		codec,
		dispatcher,
		cfg.VerifyBaseURL,
		cfg.Token.TTL,
		logger,
	)
	imageService := services.NewImageService(objects, logger)

	accountHandler := handlers.NewAccountHandler(accountService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Route("/v1", func(r chi.Router) {
		handlers.AccountRouter(r, accountService)
		handlers.ImageRouter(r, imageService, dispatcher, accountHandler.RequireBasicAuth)
		r.Get("/healthz", handlers.Healthz(dbConn))
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}

func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.PasswordEncrypted == "" &&
		cfg.Mail.PasswordEncrypted == "" &&
		cfg.Token.SecretEncrypted == "" {
		return nil
	}

	decrypter, err := secrets.NewAESDecrypter(cfg.Secrets.MasterKey)
	if err != nil {
		return err
	}
	return secrets.ResolveConfig(ctx, secrets.NewCache(decrypter), cfg)
}
