package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/staffraffle/go/internal/models"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// DefaultBucket is the JetStream KeyValue bucket used when none is configured.
const DefaultBucket = "RAFFLE_SESSIONS"

// NATSStore keeps the session in a JetStream KeyValue bucket.
type NATSStore struct {
	kv  jetstream.KeyValue
	key string
}

// NewNATSStore creates or updates the bucket and returns a store on it.
func NewNATSStore(ctx context.Context, js jetstream.JetStream, bucket, key string) (*NATSStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if key == "" {
		key = DefaultKey
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Persisted raffle sessions",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create key-value bucket %s: %w", bucket, err)
	}

	log.Info().Str("bucket", bucket).Str("key", key).Msg("using JetStream key-value session store")
	return &NATSStore{kv: kv, key: key}, nil
}

func (n *NATSStore) Save(ctx context.Context, snapshot models.RaffleSession) error {
	data, err := encode(snapshot)
	if err != nil {
		return n.fail("save", err)
	}
	if _, err := n.kv.Put(ctx, n.key, data); err != nil {
		return n.fail("save", err)
	}
	return nil
}

func (n *NATSStore) Load(ctx context.Context) (*models.RaffleSession, error) {
	entry, err := n.kv.Get(ctx, n.key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, n.fail("load", err)
	}
	snapshot, err := decode(entry.Value())
	if err != nil {
		return nil, n.fail("load", err)
	}
	return snapshot, nil
}

func (n *NATSStore) Clear(ctx context.Context) error {
	err := n.kv.Delete(ctx, n.key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return n.fail("clear", err)
	}
	return nil
}

func (n *NATSStore) fail(op string, err error) error {
	return &PersistenceError{Backend: "nats", Op: op, Err: err}
}
