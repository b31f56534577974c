package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpdav/cityflow-backend-go/internal/api"
	"github.com/hpdav/cityflow-backend-go/internal/cache"
	"github.com/hpdav/cityflow-backend-go/internal/flowsource"
	"github.com/hpdav/cityflow-backend-go/internal/middleware"
	"github.com/hpdav/cityflow-backend-go/internal/refdata"
	"github.com/hpdav/cityflow-backend-go/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}
}

func runServe(ctx context.Context, v *viper.Viper) error {
	a, err := open(ctx, v)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	gin.SetMode(cfg.Server.Mode)

	tables := refdata.New(a.store, logger)
	services := service.New(service.Deps{
		Store:            a.store,
		Tables:           tables,
		Cache:            cache.New(logger),
		Flows:            flowsource.NewSelector(cfg.Flow.Source, a.store, logger),
		Logger:           logger,
		OutlierThreshold: cfg.Analysis.OutlierThreshold,
		Shards:           cfg.Analysis.Shards,
	})

	// 预热参考表, 失败时首个请求会重试
	go func() {
		start := time.Now()
		if err := tables.Warm(ctx); err != nil {
			logger.WithError(err).Warn("failed to warm reference tables")
			return
		}
		logger.WithField("duration", time.Since(start)).Info("reference tables warmed")
	}()

	limiter := middleware.PerMinute(cfg.RateLimit)
	if limiter != nil {
		go limiter.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           api.SetupRouter(cfg, api.Options{Services: services, Logger: logger, Limiter: limiter}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":        cfg.Server.Port,
			"flow_source": cfg.Flow.Source,
			"shards":      cfg.Analysis.Shards,
			"auth":        cfg.Auth.JWTSecret != "",
		}).Info("server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
