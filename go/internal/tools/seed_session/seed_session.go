package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/staffraffle/go/internal/config"
	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/mcdev12/staffraffle/go/internal/raffle/importer"
)

// seed_session writes an unstarted raffle session into Postgres so the
// service boots with both lists already loaded.
//
//	go run ./go/internal/tools/seed_session staff.csv prizes.csv
func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <staff.csv> <prizes.csv>\n", os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 1) Read both lists
	staffRows, err := readRows(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	prizeRows, err := readRows(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	snapshot := models.RaffleSession{
		SessionID:   uuid.New(),
		EntrantPool: importer.ParseCandidates(staffRows),
		PrizePool:   importer.ParsePrizes(prizeRows),
		Winners:     models.Winners{},
		IntervalMs:  cfg.Raffle.DefaultInterval.Milliseconds(),
		SavedAt:     time.Now().UTC(),
	}
	if len(snapshot.EntrantPool) == 0 || len(snapshot.PrizePool) == 0 {
		fmt.Fprintf(os.Stderr, "both lists need at least one row: staff=%d prizes=%d\n",
			len(snapshot.EntrantPool), len(snapshot.PrizePool))
		os.Exit(1)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal session: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert the session row
	if _, err := pool.Exec(ctx, `
            CREATE TABLE IF NOT EXISTS raffle_sessions (
              key TEXT PRIMARY KEY,
              payload JSONB NOT NULL,
              saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
            )`); err != nil {
		fmt.Fprintf(os.Stderr, "create table: %v\n", err)
		os.Exit(1)
	}

	tag, err := pool.Exec(ctx, `
            INSERT INTO raffle_sessions (key, payload, saved_at)
            VALUES ($1, $2, $3)
            ON CONFLICT (key) DO UPDATE
              SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at
        `, cfg.Store.Key, payload, snapshot.SavedAt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upsert session: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(
		"Session seed: key=%s session=%s staff=%d prizes=%d rows=%d\n",
		cfg.Store.Key, snapshot.SessionID, len(snapshot.EntrantPool), len(snapshot.PrizePool), tag.RowsAffected(),
	)
}

func readRows(path string) ([]importer.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return importer.ReadCSV(f, path)
}
