package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-hub/internal/config"
	"github.com/iliyamo/volunteer-hub/internal/database"
	"github.com/iliyamo/volunteer-hub/internal/handler"
	"github.com/iliyamo/volunteer-hub/internal/middleware"
	"github.com/iliyamo/volunteer-hub/internal/queue"
	"github.com/iliyamo/volunteer-hub/internal/repository"
	"github.com/iliyamo/volunteer-hub/internal/router"
	"github.com/iliyamo/volunteer-hub/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the embedded notification consumer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(autoMigrate bool) error {
	cfg, log := a.cfg, a.log
	ctx, stop := signalContext()
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if autoMigrate {
		if _, err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	// Redis is optional: without it the cache and the rate limiter pass
	// requests through.
	var rdb *redis.Client
	redisCfg := config.LoadRedisConfig()
	if rdb, err = config.NewRedisClient(redisCfg); err != nil {
		log.Warn("redis unavailable; cache and rate limit disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	skills, err := config.LoadSkillCatalog(cfg.SkillsFile)
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	events := repository.NewEventRepo(db)
	history := repository.NewHistoryRepo(db)
	notes := repository.NewNotificationRepo(db)
	notifier := service.NewNotifier(cfg.RabbitURL, notes, log)

	e := router.NewEcho(log, cfg.CORSOrigins)
	router.RegisterRoutes(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, tokens, log),
		Profile:      handler.NewProfileHandler(profiles, skills, log),
		Event:        handler.NewEventHandler(events, profiles, history, notifier, middleware.NewCachePurger(cacheCfg, rdb), skills, log),
		History:      handler.NewHistoryHandler(history, log),
		Notification: handler.NewNotificationHandler(notes, log),
		Report:       handler.NewReportHandler(events, history, log),
		Ready:        handler.Ready(db),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(rlCfg, rdb, log),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	consumerDone := make(chan struct{})
	if cfg.RabbitURL != "" {
		c := &queue.Consumer{URL: cfg.RabbitURL, Writer: notes, Log: log}
		go func() {
			defer close(consumerDone)
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("notification consumer exited", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
		log.Info("broker disabled; notifications are written directly")
	}

	addr := ":" + cfg.Port
	srvErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		if err != nil {
			stop()
			<-consumerDone
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("notification consumer did not stop in time")
	}
	return nil
}
