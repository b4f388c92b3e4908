package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/staffraffle/go/internal/config"
	"github.com/mcdev12/staffraffle/go/internal/natsconn"
	"github.com/mcdev12/staffraffle/go/internal/raffle"
	"github.com/mcdev12/staffraffle/go/internal/raffle/engine"
	"github.com/mcdev12/staffraffle/go/internal/raffle/events"
	"github.com/mcdev12/staffraffle/go/internal/raffle/gateway"
	"github.com/mcdev12/staffraffle/go/internal/raffle/orchestrator"
	"github.com/mcdev12/staffraffle/go/internal/raffle/publisher"
	"github.com/mcdev12/staffraffle/go/internal/raffle/store"
	"github.com/nats-io/nats.go"
)

const eventBufferSize = 256

type Services struct {
	App     *raffle.App
	Bus     *events.Bus
	Gateway *gateway.Service

	nc *nats.Conn
}

// Close releases the publisher's NATS connection, if any.
func (s *Services) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func setupServices(ctx context.Context, cfg config.Config, backend store.Store, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Store → Event bus → App → Gateway

	bus := events.NewBus(eventBufferSize)
	s := &Services{Bus: bus}

	if cfg.NATS.PublishEvents {
		nc, js, err := natsconn.Connect(cfg.NATS.URL, "staff-raffle-publisher")
		if err != nil {
			return nil, err
		}
		pubCfg := publisher.DefaultConfig()
		pubCfg.StreamName = cfg.NATS.Stream
		pubCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		pub, err := publisher.NewJetStreamPublisher(ctx, js, pubCfg)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("event publisher: %w", err)
		}
		bus.Subscribe(pub)
		s.nc = nc
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.RevealDuration = cfg.Raffle.RevealDuration
	engineCfg.RevealTick = cfg.Raffle.RevealTick

	schedCfg := orchestrator.DefaultConfig()
	schedCfg.SettleDelay = cfg.Raffle.SettleDelay

	s.App = raffle.NewApp(store.NewBestEffort(backend), bus, clock, raffle.Config{
		Engine:    engineCfg,
		Scheduler: schedCfg,
	})

	gwCfg := gateway.DefaultConfig()
	gwCfg.DefaultInterval = cfg.Raffle.DefaultInterval
	gwCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	s.Gateway = gateway.NewService(gwCfg, s.App)
	bus.Subscribe(s.Gateway.Sink())

	return s, nil
}
