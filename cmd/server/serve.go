package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/config"
	"github.com/pinpoint-prep/backend/internal/database"
	"github.com/pinpoint-prep/backend/internal/events"
	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/metrics"
	"github.com/pinpoint-prep/backend/internal/middleware"
	"github.com/pinpoint-prep/backend/internal/proficiency"
	"github.com/pinpoint-prep/backend/internal/questions"
	"github.com/pinpoint-prep/backend/internal/quiz"
)

const (
	// Sessions idle for longer than this are swept.
	sessionTTL    = 24 * time.Hour
	sweepInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt_secret is required to serve")
	}

	m := metrics.NewManager(metrics.WithMetricsEnabled(cfg.MetricsEnabled))

	// Initialize database
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log.Named("events"))
		if err != nil {
			return err
		}
		publisher = p
		log.Info(ctx, "publishing quiz events", logger.String("exchange", cfg.AMQPExchange))
	}
	defer publisher.Close()

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pick := adaptive.NewLockedRand(seed)

	// Stores and services
	questionStore := questions.NewStore(db)
	proficiencyStore := proficiency.NewStore(db, cfg.DefaultProficiency)
	sessionStore := quiz.NewStore(db)
	// Postgres locks the user's estimate row for the rest of the submit.
	lockRows := cfg.DBDriver == config.DriverPostgres
	committer := quiz.NewSQLCommitter(db, sessionStore, func(tx *sql.Tx) quiz.ProficiencyStore {
		return proficiencyStore.WithTx(tx, lockRows)
	})
	selector := adaptive.NewSelector(questionStore, pick, log.Named("selector"))
	quizService := quiz.NewService(sessionStore, proficiencyStore, committer, selector, publisher, m,
		log.Named("quiz"), pick, quiz.Options{
			TotalQuestions: cfg.QuizTotalQuestions,
			EBRWQuestions:  cfg.QuizEBRWQuestions,
		})

	// Initialize handlers
	questionHandler := questions.NewHandler(questionStore, log.Named("questions"))
	proficiencyHandler := proficiency.NewHandler(proficiencyStore, log.Named("proficiency"))
	quizHandler := quiz.NewHandler(quizService, log.Named("quiz"))
	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log.Named("http"), m))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	// Protected routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware)
	api.HandleFunc("/proficiency", proficiencyHandler.GetProficiency).Methods("GET")
	api.HandleFunc("/questions/{id}/report", questionHandler.ReportQuestion).Methods("POST")
	api.HandleFunc("/questions/{id}/reports", questionHandler.ListReports).Methods("GET")
	quizHandler.Register(api)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepSessions(ctx, sessionStore, log.Named("sweeper"))

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", logger.String("addr", cfg.Addr), logger.String("db_driver", cfg.DBDriver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweepSessions deletes abandoned quiz sessions until ctx is done.
func sweepSessions(ctx context.Context, store *quiz.Store, log logger.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteStaleSessions(ctx, time.Now().Add(-sessionTTL))
			if err != nil {
				log.Warn(ctx, "sweep sessions", logger.Error(err))
				continue
			}
			if n > 0 {
				log.Info(ctx, "swept stale sessions", logger.Int64("count", n))
			}
		}
	}
}
