// Package redis implementa events.Bus sobre Redis Streams con consumer
// groups. XADD da durabilidad de publicación; XREADGROUP + XACK dan entrega
// at-least-once por grupo.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dropDatabas3/datavault/internal/events"
	"github.com/dropDatabas3/datavault/internal/observability/logger"
)

const payloadField = "payload"

// Config configura la conexión y el comportamiento del consumidor.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix se antepone a los nombres de stream (ej: "datavault").
	Prefix string
	// Block es cuánto espera cada XREADGROUP antes de re-chequear ctx.
	Block time.Duration
	// MinIdle es la antigüedad mínima para reclamar mensajes pendientes de
	// consumidores caídos via XAUTOCLAIM.
	MinIdle time.Duration
	// MaxLen limita el largo aproximado de cada stream (0 = sin límite).
	MaxLen int64
}

type Bus struct {
	client   *redis.Client
	prefix   string
	block    time.Duration
	minIdle  time.Duration
	maxLen   int64
	consumer string
}

func New(cfg Config) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("events: redis ping failed: %w", err)
	}

	block := cfg.Block
	if block == 0 {
		block = 5 * time.Second
	}
	minIdle := cfg.MinIdle
	if minIdle == 0 {
		minIdle = time.Minute
	}

	host, _ := os.Hostname()
	return &Bus{
		client:   rdb,
		prefix:   cfg.Prefix,
		block:    block,
		minIdle:  minIdle,
		maxLen:   cfg.MaxLen,
		consumer: fmt.Sprintf("%s-%d", host, os.Getpid()),
	}, nil
}

func (b *Bus) stream(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + ":" + topic
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: b.stream(topic),
		Values: map[string]any{payloadField: payload},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}
	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic, group string, h events.Handler) error {
	stream := b.stream(topic)
	log := logger.Named("events.redis").With(
		logger.String("stream", stream),
		logger.String("group", group),
	)

	if err := b.ensureGroup(ctx, stream, group); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Primero reclamar pendientes viejos de consumidores muertos.
		b.claimStale(ctx, stream, group, h, log)

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: b.consumer,
			Streams:  []string{stream, ">"},
			Count:    16,
			Block:    b.block,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue // timeout del block, no hay mensajes nuevos
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Warn("read group failed, backing off", logger.Err(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, str := range res {
			for _, msg := range str.Messages {
				b.dispatch(ctx, stream, group, msg, h, log)
			}
		}
	}
}

func (b *Bus) ensureGroup(ctx context.Context, stream, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("events: create group %s on %s: %w", group, stream, err)
	}
	return nil
}

func (b *Bus) claimStale(ctx context.Context, stream, group string, h events.Handler, log *zap.Logger) {
	msgs, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: b.consumer,
		MinIdle:  b.minIdle,
		Start:    "0-0",
		Count:    16,
	}).Result()
	if err != nil && err != redis.Nil {
		return
	}
	for _, msg := range msgs {
		b.dispatch(ctx, stream, group, msg, h, log)
	}
}

func (b *Bus) dispatch(ctx context.Context, stream, group string, msg redis.XMessage, h events.Handler, log *zap.Logger) {
	raw, _ := msg.Values[payloadField].(string)
	err := h(ctx, []byte(raw))
	switch {
	case err == nil:
		_ = b.client.XAck(ctx, stream, group, msg.ID).Err()
	case errors.Is(err, events.ErrMalformed):
		// Mensaje permanentemente inválido: ack para que no se reentregue.
		log.Warn("dropping malformed message", logger.String("msg_id", msg.ID), logger.Err(err))
		_ = b.client.XAck(ctx, stream, group, msg.ID).Err()
	default:
		// Sin ack: el mensaje queda pendiente y será reentregado.
		log.Warn("handler failed, message will be redelivered",
			logger.String("msg_id", msg.ID), logger.Err(err))
	}
}

func (b *Bus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Bus) Close() error {
	return b.client.Close()
}
