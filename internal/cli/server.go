package cli

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quizdesk/internal/app"
	"quizdesk/internal/catalog"
	"quizdesk/internal/config"
	"quizdesk/internal/identity"
	"quizdesk/internal/infra/memory"
	pgstore "quizdesk/internal/infra/postgres"
	redisinfra "quizdesk/internal/infra/redis"
	"quizdesk/internal/infra/sqlite"
	transport "quizdesk/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds whichever infrastructure the config selected.
type backends struct {
	store       app.QuizStore
	quizzes     app.QuizRepository
	attempts    app.AttemptRegistry
	revocations identity.Revocations
	closers     []io.Closer
}

func (b *backends) Close() {
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			log.Printf("close backend: %v", err)
		}
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openBackends picks the store (Postgres, then SQLite, then memory) and the
// cache/registry/revocation layer (Redis when configured, otherwise memory).
func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, closerFunc(func() error { pool.Close(); return nil }))
		b.store = pgstore.NewQuizStore(pool)
		log.Printf("using postgres quiz store")
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewQuizStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, store)
		b.store = store
		log.Printf("using sqlite quiz store at %s", cfg.SQLite.Path)
	default:
		b.store = memory.NewQuizStore()
		log.Printf("using in-memory quiz store; data is lost on restart")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, client)
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		b.quizzes = redisinfra.NewQuizRepository(client, b.store, quizTTL)
		b.attempts = redisinfra.NewAttemptRegistry(client, redisTTL)
		b.revocations = redisinfra.NewRevocationStore(client)
	} else {
		b.quizzes = memory.NewQuizRepository(b.store, quizTTL)
		b.attempts = memory.NewAttemptRegistry()
		b.revocations = memory.NewRevocationStore()
	}
	return b, nil
}

func newProvider(cfg config.Config, revocations identity.Revocations) *identity.Provider {
	secret := cfg.Auth.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Printf("auth.secret not set; tokens will not survive a restart")
	}
	return identity.NewProvider(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour), revocations)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	bundled, err := catalog.New()
	if err != nil {
		return err
	}

	handoff := app.NewHandoff(b.store, app.SystemClock{}, config.TTLDuration(cfg.Results.PersistTimeout, 5*time.Second))
	service := app.NewQuizService(b.store, b.quizzes, bundled, b.attempts,
		app.WithHandoff(handoff),
		app.WithAttemptRetention(config.TTLDuration(cfg.Redis.TTL, app.DefaultAttemptRetention)))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, newProvider(cfg, b.revocations)),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket attempts stay open for the whole quiz
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// stop countdowns before the deferred backend close
	service.CloseAttempts()
	return err
}
