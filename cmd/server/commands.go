package main

import (
	"context"
	"fmt"
	"time"

	"udm-tms-service/internal/redisclient"
	"udm-tms-service/internal/service"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		util.GetLogger().Info("Schema migrated", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reset the database to the demo fixture set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache, locker, closeRedis := connectRedis()
		defer closeRedis()

		summary, err := service.NewSeedService(st, cache, locker).Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}

		util.GetLogger().Info("Database seeded",
			zap.Int("components", summary.Components),
			zap.Int("inspections", summary.Inspections),
			zap.Int("assets", summary.Assets))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// openStore connects to the configured database and applies the schema
func openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return st, nil
}

// connectRedis returns the Redis backed cache and lock when Redis is enabled
// and reachable, and in-process fallbacks otherwise
func connectRedis() (service.ComponentCache, service.Locker, func()) {
	logger := util.GetLogger()

	if !cfg.Redis.Enabled {
		return service.NoopCache{}, service.NewLocalLocker(), func() {}
	}

	client, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		return service.NoopCache{}, service.NewLocalLocker(), func() {}
	}
	logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))

	ttl := time.Duration(cfg.Redis.ComponentCacheTTL) * time.Second
	return service.NewRedisComponentCache(client, ttl), client, func() { client.Close() }
}
