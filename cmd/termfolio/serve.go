package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"termfolio/internal/auth"
	"termfolio/internal/config"
	"termfolio/internal/logging"
	"termfolio/internal/middleware"
	"termfolio/internal/server"
	"termfolio/internal/store"
)

func newServeCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST data store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return err
			}
			logger := logging.New(os.Stderr, logLevel)

			gin.SetMode(cfg.GinMode)
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					logger.Error("close store", "err", err)
				}
			}()

			keyCfg := auth.KeyConfig{
				Secret: cfg.APISecret,
				Expiry: cfg.APIKeyExpiry,
				Issuer: auth.DefaultKeyConfig(cfg.APISecret).Issuer,
			}
			limiter := middleware.NewRateLimiter(cfg.GuestbookRateLimit, time.Minute)
			defer limiter.Close()

			router := server.NewRouter(server.Deps{
				Store:            st,
				KeyConfig:        keyCfg,
				GuestbookLimiter: limiter,
				Version:          version,
			})

			logger.Info("listening", "addr", fmt.Sprintf(":%d", cfg.Port), "store", cfg.StoreDriver, "tls", cfg.TLSCertFile != "")
			return server.Run(cmd.Context(), cfg, router)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func openStore(ctx context.Context, cfg config.ServerConfig) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return store.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return store.NewMemoryWithOptions(store.MemoryOptions{StateFile: cfg.StoreFile}), nil
	}
}
