package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/classloop/classloop/internal/config"
	"github.com/classloop/classloop/internal/devserver"
)

func devserverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devserver",
		Short: "Run the local stub of the ClassLoop auth API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			opts := []devserver.Option{
				devserver.WithLogger(logger),
				devserver.WithUserRegistry(devserver.NewUserRegistry(cfg.DevBcryptCost)),
			}
			if cfg.DevRedisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: cfg.DevRedisAddr})
				if err := rdb.Ping(cmd.Context()).Err(); err != nil {
					return err
				}
				logger.Info("using redis session store", "addr", cfg.DevRedisAddr)
				opts = append(opts, devserver.WithSessionStore(devserver.NewRedisStore(rdb)))
			}
			if cfg.DevJWTSecret != "" {
				opts = append(opts, devserver.WithJWTSecret([]byte(cfg.DevJWTSecret)))
			}

			srv := devserver.New(cfg.DevAddr, opts...)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-stop:
				logger.Info("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
}
