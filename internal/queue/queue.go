// Package queue publishes ledger events to RabbitMQ. Publication is
// best-effort and never on the success-critical path: failures are
// logged and counted, the originating operation is unaffected.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/babylonlabs-io/staking-rewards-ledger/internal/config"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-rewards-ledger/internal/types"
)

type Publisher struct {
	cfg     *config.QueueConfig
	conn    *amqp.Connection
	channel *amqp.Channel
	wg      conc.WaitGroup
}

func NewPublisher(cfg *config.QueueConfig) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.AmqpURI())
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	_, err = channel.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{
		cfg:     cfg,
		conn:    conn,
		channel: channel,
	}, nil
}

// Publish hands the event to a background goroutine and returns
// immediately. The goroutine survives request cancellation so a
// committed operation still gets its notification out.
func (p *Publisher) Publish(ctx context.Context, ev *types.LedgerEvent) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Go(func() {
		p.publish(ctx, ev)
	})
}

func (p *Publisher) publish(ctx context.Context, ev *types.LedgerEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("event_type", ev.EventType.String()).
			Msg("Failed to marshal ledger event")
		metrics.RecordQueueSendError()
		return
	}

	err = retry.Do(
		func() error {
			publishCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
			defer cancel()

			return p.channel.PublishWithContext(
				publishCtx,
				"",              // default exchange
				p.cfg.QueueName, // routing key
				false,           // mandatory
				false,           // immediate
				amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					Timestamp:    time.Now(),
					Type:         ev.EventType.String(),
					Body:         body,
				},
			)
		},
		retry.Attempts(p.cfg.MaxRetryTimes),
		retry.Delay(p.cfg.RetryInterval),
		retry.Context(ctx),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("event_type", ev.EventType.String()).
			Uint64("pool_id", ev.PoolID).
			Msg("Failed to publish ledger event")
		metrics.RecordQueueSendError()
	}
}

// Shutdown waits for in-flight publishes and releases the connection.
func (p *Publisher) Shutdown() {
	p.wg.Wait()
	if err := p.channel.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close amqp channel")
	}
	if err := p.conn.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close amqp connection")
	}
	log.Info().Msg("Shutting down queue publisher")
}
