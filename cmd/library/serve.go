package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/tazhibayda/library-service/docs"
	"github.com/tazhibayda/library-service/internal/borrow"
	"github.com/tazhibayda/library-service/internal/config"
	api "github.com/tazhibayda/library-service/internal/http"
	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/oauth"
	"github.com/tazhibayda/library-service/internal/queue"
	"github.com/tazhibayda/library-service/internal/repo"
	"github.com/tazhibayda/library-service/internal/session"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, flush, err := setup("library-api")
			if err != nil {
				return err
			}
			defer flush()
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(connectCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fatal("mongo connect", err)
	}
	defer store.Close(context.Background())
	if err := store.EnsureIndexes(connectCtx); err != nil {
		return fatal("mongo indexes", err)
	}

	health := map[string]api.Check{"mongo": store.Ping}
	var (
		sessions session.Store = session.NewMemoryStore(cfg.SessionTTL)
		limiter  api.Limiter
	)
	if cfg.RedisAddr != "" {
		rds, err := repo.OpenRedis(connectCtx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fatal("redis connect", err)
		}
		defer rds.Close()
		sessions = session.NewRedisStore(rds.C, cfg.SessionTTL)
		limiter = api.NewRedisLimiter(rds.C, cfg.RateLimitPerMin, time.Minute)
		health["redis"] = rds.Ping
	} else {
		log.L().Warn("REDIS_ADDR not set, sessions are kept in process memory")
	}

	events := queue.NewNoop()
	if cfg.RabbitURL != "" {
		if events, err = queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange); err != nil {
			return fatal("rabbit connect", err)
		}
	}
	defer events.Close()

	docs.SwaggerInfo.BasePath = "/"

	h := api.NewHandler(api.Deps{
		Books:    store.Books,
		Users:    store.Users,
		Reviews:  store.Reviews,
		Accounts: store,
		Borrows: borrow.NewManager(store, store, events, borrow.Options{
			Strict:   cfg.StrictBorrowTransitions,
			Exchange: cfg.RabbitExchange,
		}),
		Sessions: sessions,
		OAuth: oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL, cfg.SessionSecret),
		Limiter:         limiter,
		SessionTTL:      cfg.SessionTTL,
		CookieSecure:    cfg.CookieSecure,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Health:          health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	log.L().Info("library api listening", zap.String("port", cfg.Port),
		zap.Bool("strict_borrow_transitions", cfg.StrictBorrowTransitions))

	select {
	case <-ctx.Done():
		log.L().Info("shutting down")
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fatal("server", err)
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
