package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mcdev12/staffraffle/go/internal/config"
	"github.com/mcdev12/staffraffle/go/internal/natsconn"
	"github.com/mcdev12/staffraffle/go/internal/raffle/store"
	"github.com/rs/zerolog/log"
)

// setupStore opens the configured backend. The returned func releases it.
func setupStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	sc := cfg.Store
	switch sc.Backend {
	case config.BackendFile:
		if err := os.MkdirAll(sc.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		fs := store.NewFileStore(sc.DataDir, sc.Key)
		log.Info().Str("path", fs.Path()).Msg("using file session store")
		return fs, func() {}, nil

	case config.BackendSQLite:
		s, err := store.OpenSQLite(ctx, sc.SQLitePath, sc.Key)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", sc.SQLitePath).Msg("using sqlite session store")
		return s, closer(s.Close, "sqlite"), nil

	case config.BackendPostgres:
		p, err := store.OpenPostgres(ctx, cfg.Database.DSN(), sc.Key)
		if err != nil {
			return nil, nil, err
		}
		if err := p.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Name).
			Msg("using postgres session store")
		return p, closer(p.Close, "postgres"), nil

	case config.BackendNATS:
		nc, js, err := natsconn.Connect(cfg.NATS.URL, "staff-raffle-store")
		if err != nil {
			return nil, nil, err
		}
		n, err := store.NewNATSStore(ctx, js, cfg.NATS.KVBucket, sc.Key)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		log.Info().Str("bucket", cfg.NATS.KVBucket).Msg("using NATS KV session store")
		return n, nc.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
}

func closer(fn func() error, name string) func() {
	return func() {
		if err := fn(); err != nil {
			log.Error().Err(err).Str("backend", name).Msg("failed to close session store")
		}
	}
}
