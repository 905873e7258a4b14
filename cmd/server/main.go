package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"drs/internal/audit"
	"drs/internal/cases"
	caseshandler "drs/internal/cases/handler"
	"drs/internal/compliance"
	"drs/internal/gsma"
	gsmahandler "drs/internal/gsma/handler"
	httpapi "drs/internal/http"
	"drs/internal/imei"
	"drs/internal/jwtauth"
	"drs/internal/notification"
	notificationhandler "drs/internal/notification/handler"
	"drs/internal/platform/config"
	"drs/internal/platform/httpserver"
	"drs/internal/platform/logger"
	"drs/internal/platform/metrics"
	redisplatform "drs/internal/platform/redis"
	"drs/internal/quota"
	quotahandler "drs/internal/quota/handler"
	"drs/internal/review"
	reviewhandler "drs/internal/review/handler"
	"drs/pkg/platform/tx"
)

const (
	tokenIssuer = "drs"
	outboxSize  = 256
)

// main wires the stores, services, and HTTP surface together. Business logic
// lives in the internal packages; this file only decides which implementation
// of each dependency runs.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Compliance pipeline.
	coreClient, err := compliance.NewClient(cfg.CoreBaseURL, compliance.WithClientLogger(log))
	if err != nil {
		log.Error("failed to build core client", "error", err)
		os.Exit(1)
	}
	aggregator, err := compliance.NewAggregator(
		coreClient,
		compliance.NewClassifier(nil),
		compliance.NewReportWriter(cfg.UploadsDir),
		compliance.WithLogger(log),
		compliance.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build aggregator", "error", err)
		os.Exit(1)
	}

	// Stores. Postgres when configured, in-memory otherwise.
	var (
		caseStore   cases.Store
		imeiStore   imei.Store
		quotaStore  quota.Store
		noteStore   notification.Store
		ledgerStore review.Store
		trailStore  audit.Store
		runner      tx.Runner
	)
	if db != nil {
		caseStore = cases.NewPostgresStore(db)
		imeiStore = imei.NewPostgresStore(db)
		quotaStore = quota.NewPostgresStore(db)
		noteStore = notification.NewPostgresStore(db)
		ledgerStore = review.NewPostgresStore(db)
		trailStore = audit.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
	} else {
		caseStore = cases.NewInMemoryStore()
		imeiStore = imei.NewInMemoryStore()
		quotaStore = quota.NewInMemoryStore()
		noteStore = notification.NewInMemoryStore()
		ledgerStore = review.NewInMemoryStore()
		trailStore = audit.NewInMemoryStore()
		runner = tx.NewMemoryRunner()
	}

	auditor := audit.NewPublisher(trailStore)

	outbox := make(chan notification.Notification, outboxSize)
	notifier, err := notification.New(noteStore,
		notification.WithLogger(log),
		notification.WithOutbox(outbox),
	)
	if err != nil {
		log.Error("failed to build notification service", "error", err)
		os.Exit(1)
	}

	imeiSvc, err := imei.New(imeiStore, imei.WithLogger(log))
	if err != nil {
		log.Error("failed to build imei service", "error", err)
		os.Exit(1)
	}
	quotaSvc, err := quota.New(quotaStore, quota.WithLogger(log), quota.WithMetrics(m))
	if err != nil {
		log.Error("failed to build quota service", "error", err)
		os.Exit(1)
	}

	caseSvc, err := cases.New(caseStore, imeiSvc, aggregator,
		cases.WithLogger(log),
		cases.WithMetrics(m),
		cases.WithNotifier(notifier),
		cases.WithAuditor(auditor),
		cases.WithAutomatedReview(cfg.AutomateReview),
	)
	if err != nil {
		log.Error("failed to build case service", "error", err)
		os.Exit(1)
	}

	reviewSvc, err := review.New(ledgerStore, caseStore, imeiSvc, quotaSvc, runner,
		review.WithLogger(log),
		review.WithMetrics(m),
		review.WithNotifier(notifier),
		review.WithAuditor(auditor),
		review.WithDuplicateReporter(compliance.NewReportWriter(cfg.UploadsDir)),
	)
	if err != nil {
		log.Error("failed to build review service", "error", err)
		os.Exit(1)
	}
	caseSvc.SetAutoReviewer(reviewSvc)

	// GSMA TAC lookups, cached in Redis when available.
	gsmaClient, err := gsma.NewClient(cfg.CoreBaseURL, nil)
	if err != nil {
		log.Error("failed to build gsma client", "error", err)
		os.Exit(1)
	}
	gsmaOpts := []gsma.Option{gsma.WithLogger(log)}
	if redisClient != nil {
		gsmaOpts = append(gsmaOpts, gsma.WithCache(gsma.NewCache(redisClient.Client, cfg.GSMACacheTTL)))
	}
	gsmaSvc, err := gsma.New(gsmaClient, gsmaOpts...)
	if err != nil {
		log.Error("failed to build gsma service", "error", err)
		os.Exit(1)
	}

	deps := httpapi.Deps{
		Auth:          jwtauth.NewService(cfg.JWTSigningKey, tokenIssuer),
		Cases:         caseshandler.New(caseSvc, log, cfg.UploadsDir),
		Review:        reviewhandler.New(reviewSvc, log),
		Notifications: notificationhandler.New(notifier, log),
		Quota:         quotahandler.New(quotaSvc, log),
		GSMA:          gsmahandler.New(gsmaSvc, log),
		Logger:        log,
	}
	if db != nil {
		deps.DB = db
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	srv := httpserver.New(cfg.Addr, httpapi.New(deps))

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker := notification.NewWorker(notification.LogSink{Logger: log}, outbox, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification worker stopped", "error", err)
		}
	}()

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	if err := httpserver.Shutdown(srv); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	stopWorker()
	<-workerDone
}
