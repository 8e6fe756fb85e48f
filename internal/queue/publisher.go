// Package queue publishes discovered album IDs for asynchronous ingestion.
// Delivery is best effort: the read path that discovers candidates must not
// fail because the queue is down.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
)

// batchSize caps how many messages go out per publish call.
const batchSize = 10

// Config holds queue connection settings.
type Config struct {
	URL           string
	Topic         string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns production defaults for the given NATS URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		Topic:         "catalog.album.sync",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	}
}

// syncRequest is the queue message body.
type syncRequest struct {
	SpotifyAlbumID string `json:"spotify_album_id"`
	Market         string `json:"market,omitempty"`
}

// Publisher sends album sync requests over NATS JetStream.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    *log.Logger

	mu     sync.Mutex
	closed bool
}

// NewPublisher connects to NATS and returns a publisher for album sync
// requests. The message UUID doubles as Nats-Msg-Id so JetStream can
// deduplicate redeliveries.
func NewPublisher(cfg Config, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Default()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn("queue disconnected", "err", err)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("queue reconnected", "url", nc.ConnectedUrl())
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, fmt.Errorf("creating queue publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		topic:     cfg.Topic,
		logger:    logger,
	}, nil
}

// EnqueueAlbumSync publishes one sync request per album ID, in batches.
// Marshal and publish failures are logged and swallowed: a dropped enqueue
// only delays ingestion until the album is discovered again.
func (p *Publisher) EnqueueAlbumSync(ctx context.Context, spotifyAlbumIDs []string, market string) {
	if len(spotifyAlbumIDs) == 0 {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("enqueue after close dropped", "albums", len(spotifyAlbumIDs))
		return
	}
	p.mu.Unlock()

	msgs, err := buildSyncMessages(spotifyAlbumIDs, market)
	if err != nil {
		p.logger.Warn("building sync messages failed", "err", err)
		return
	}

	for _, batch := range batchMessages(msgs, batchSize) {
		if err := p.publisher.Publish(p.topic, batch...); err != nil {
			p.logger.Warn("enqueue batch failed",
				"topic", p.topic,
				"batch_size", len(batch),
				"err", err,
			)
		}
	}
}

// Close shuts the publisher down. Further enqueues become no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// buildSyncMessages marshals one message per album ID.
func buildSyncMessages(spotifyAlbumIDs []string, market string) ([]*message.Message, error) {
	msgs := make([]*message.Message, 0, len(spotifyAlbumIDs))
	for _, id := range spotifyAlbumIDs {
		if id == "" {
			continue
		}
		body, err := json.Marshal(syncRequest{SpotifyAlbumID: id, Market: market})
		if err != nil {
			return nil, fmt.Errorf("marshaling sync request for %s: %w", id, err)
		}
		msg := message.NewMessage(uuid.NewString(), body)
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// batchMessages splits msgs into slices of at most size.
func batchMessages(msgs []*message.Message, size int) [][]*message.Message {
	if size <= 0 {
		return [][]*message.Message{msgs}
	}
	var batches [][]*message.Message
	for len(msgs) > size {
		batches = append(batches, msgs[:size])
		msgs = msgs[size:]
	}
	if len(msgs) > 0 {
		batches = append(batches, msgs)
	}
	return batches
}
