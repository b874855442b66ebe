package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"moto_backend/internal/config"
)

// Connect: pool bounds dari config (PG_MAX_CONNS), application_name =
// nama service supaya pg_stat_activity kebaca per process (api vs
// inventory pakai pool terpisah).
func Connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func poolConfig(cfg config.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	pc.MaxConns = cfg.PGMaxConns
	pc.MinConns = 1
	pc.HealthCheckPeriod = 30 * time.Second
	pc.ConnConfig.RuntimeParams["application_name"] = cfg.ServiceName
	return pc, nil
}
