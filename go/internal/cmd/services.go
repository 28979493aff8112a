package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/geoduel/go/clients/geodata_client"
	"github.com/mcdev12/geoduel/go/clients/matchdata_client"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/game"
	"github.com/mcdev12/geoduel/go/internal/gateway"
	"github.com/mcdev12/geoduel/go/internal/guess"
	"github.com/mcdev12/geoduel/go/internal/health"
	"github.com/mcdev12/geoduel/go/internal/location"
	"github.com/mcdev12/geoduel/go/internal/lock"
	"github.com/mcdev12/geoduel/go/internal/match"
	"github.com/mcdev12/geoduel/go/internal/matchmaking"
	"github.com/mcdev12/geoduel/go/internal/roundtimer"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Game      *game.App
	Gateway   *gateway.Service
	Listener  *roundtimer.Listener
	Publisher *events.Publisher
	Health    *health.Checker

	closers []func() error
}

// stores is one backend's implementation of every shared store.
type stores struct {
	locker  lock.Locker
	matches match.Store
	guesses guess.Store
	queue   matchmaking.Queue
	timers  interface {
		roundtimer.Timer
		roundtimer.Source
	}
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Stores → clients → publisher → game app → gateway
	services := &Services{Health: health.NewChecker(2 * time.Second)}
	clock := clockwork.NewRealClock()

	var st stores
	switch config.StoreBackend {
	case backendMemory:
		log.Warn().Msg("using in-memory stores; state is not shared between instances")
		st = setupMemoryStores(clock, config)
	default:
		rdb, db, err := setupRedis(ctx, config)
		if err != nil {
			return nil, err
		}
		services.closers = append(services.closers, rdb.Close)
		services.Health.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		st = setupRedisStores(rdb, db, clock, config)
	}

	bus, err := setupBus(ctx, config)
	if err != nil {
		services.Close()
		return nil, err
	}
	if js, ok := bus.(*events.JetStreamPublisher); ok {
		services.closers = append(services.closers, js.Close)
		services.Health.Register("nats", js.Healthy)
	}

	var fallback events.FallbackSink
	if config.DataServiceURL != "" {
		fallback = matchdata_client.NewMatchDataClient(config.DataServiceURL, config.DataServiceAPIKey)
	} else {
		log.Warn().Msg("DATA_SERVICE_URL not set, match results have no fallback path")
	}
	services.Publisher = events.NewPublisher(bus, fallback, config.RetryConfig(), clock)

	var remote location.RandomLocationFetcher
	if config.GeoDataURL != "" {
		remote = geodata_client.NewGeoDataClient(config.GeoDataURL, config.GeoDataAPIKey)
	}
	locations := location.NewProvider(remote, config.FallbackLocations())

	connections := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	services.Game = game.NewApp(game.Dependencies{
		Matches:   st.matches,
		Queue:     st.queue,
		Guesses:   st.guesses,
		Timers:    st.timers,
		Locker:    st.locker,
		Locations: locations,
		Events:    services.Publisher,
		Notifier:  gateway.NewNotifier(connections),
		Clock:     clock,
	}, game.Settings{
		RoundDuration:    config.Game.RoundDuration,
		FirstGuessWindow: config.Game.FirstGuessWindow,
		EndRoundLockTTL:  config.Game.EndRoundLockTTL,
		PublishTimeout:   config.Publisher.PublishTimeout,
		FinalizeTimeout:  config.Game.FinalizeTimeout,
	})

	services.Gateway = gateway.NewService(connections, services.Game)

	services.Listener, err = roundtimer.NewListener(st.timers, services.Game, config.ExpirationWorkers)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create round timer listener: %w", err)
	}

	return services, nil
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
	s.closers = nil
}

func setupRedis(ctx context.Context, config *Config) (*redis.Client, int, error) {
	opts, err := config.Redis.Options()
	if err != nil {
		return nil, 0, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, 0, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return rdb, opts.DB, nil
}

func setupRedisStores(rdb *redis.Client, db int, clock clockwork.Clock, config *Config) stores {
	locker := lock.NewRedisLocker(rdb)
	return stores{
		locker:  locker,
		matches: match.NewRedisStore(rdb, locker, config.Game.MatchTTL),
		guesses: guess.NewRedisStore(rdb, config.Game.GuessTTL),
		queue:   matchmaking.NewRedisQueue(rdb),
		timers:  roundtimer.NewRedisTimer(rdb, db, clock),
	}
}

func setupMemoryStores(clock clockwork.Clock, config *Config) stores {
	locker := lock.NewMemoryLocker(clock)
	return stores{
		locker:  locker,
		matches: match.NewMemoryStore(locker),
		guesses: guess.NewMemoryStore(clock, config.Game.GuessTTL),
		queue:   matchmaking.NewMemoryQueue(clock),
		timers:  roundtimer.NewMemoryTimer(clock),
	}
}

func setupBus(ctx context.Context, config *Config) (events.EventPublisher, error) {
	if config.NatsURL == "" {
		if config.StoreBackend != backendMemory {
			return nil, fmt.Errorf("NATS_URL is required with the %s backend", config.StoreBackend)
		}
		log.Warn().Msg("NATS_URL not set, events are only logged")
		return events.LogPublisher{}, nil
	}

	jsConfig := events.DefaultJetStreamConfig()
	jsConfig.URL = config.NatsURL
	publisher, err := events.NewJetStreamPublisher(ctx, jsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to JetStream: %w", err)
	}
	return publisher, nil
}
