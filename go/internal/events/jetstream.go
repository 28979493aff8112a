package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	headerEventType = "Event-Type"
	headerMatchID   = "Match-ID"
)

type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	// MaxAge bounds how long outcomes stay in the stream for late consumers.
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "GAME_EVENTS",
		SubjectPrefix:   "game.events",
		MaxAge:          72 * time.Hour,
		DuplicateWindow: 10 * time.Minute,
	}
}

// JetStreamPublisher writes round and match outcomes to the GAME_EVENTS stream. Event IDs
// double as message IDs, so a retried publish inside the duplicate window is stored once.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("geoduel-match-service"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("event bus disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("event bus reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open JetStream: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Round and match outcomes",
		Subjects: []string{
			cfg.SubjectPrefix + "." + TopicRoundEnded,
			cfg.SubjectPrefix + "." + TopicMatchEnded,
		},
		Storage:    jetstream.FileStorage,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.DuplicateWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("declare stream %s: %w", cfg.StreamName, err)
	}
	log.Info().Str("stream", stream.CachedInfo().Config.Name).Msg("event stream ready")

	return &JetStreamPublisher{nc: nc, js: js, config: cfg}, nil
}

// Subject maps a topic onto the stream's subject space.
func (p *JetStreamPublisher) Subject(topic string) string {
	return subjectFor(p.config.SubjectPrefix, topic)
}

func subjectFor(prefix, topic string) string {
	return prefix + "." + topic
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := buildMessage(p.Subject(event.Topic), event)
	if err != nil {
		return err
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(event.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish %s for match %s: %w", event.Topic, event.MatchID, err)
	}
	if ack.Duplicate {
		log.Debug().Str("event_id", event.ID.String()).Msg("event already stored")
	}
	return nil
}

// Healthy reports an error while the NATS connection is down.
func (p *JetStreamPublisher) Healthy(_ context.Context) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	MatchID   string          `json:"matchId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func buildMessage(subject string, event Event) (*nats.Msg, error) {
	data, err := sonic.Marshal(envelope{
		EventID:   event.ID.String(),
		EventType: event.Topic,
		MatchID:   event.MatchID.String(),
		Timestamp: event.CreatedAt.UTC(),
		Payload:   json.RawMessage(event.Payload),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event.Topic, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(headerEventType, event.Topic)
	msg.Header.Set(headerMatchID, event.MatchID.String())
	msg.Header.Set("Content-Type", "application/json")
	return msg, nil
}
