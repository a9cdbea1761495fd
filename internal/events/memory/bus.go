// Package memory implementa events.Bus en proceso, para desarrollo y tests.
// La entrega es síncrona dentro de Publish cuando hay suscriptores activos,
// lo que hace deterministas los tests del coordinador.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dropDatabas3/datavault/internal/events"
)

type subscriber struct {
	group string
	ch    chan []byte
}

// Bus entrega cada mensaje a un suscriptor por consumer group, imitando la
// semántica de grupos del transporte real. Expone además FailNext para
// simular fallos transitorios de publicación en tests.
type Bus struct {
	mu       sync.Mutex
	subs     map[string][]*subscriber
	closed   bool
	failNext map[string]int
}

func New() *Bus {
	return &Bus{
		subs:     make(map[string][]*subscriber),
		failNext: make(map[string]int),
	}
}

// FailNext hace fallar las próximas n publicaciones al topic dado.
func (b *Bus) FailNext(topic string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[topic] = n
}

var errPublishFailed = errors.New("events: injected publish failure")

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("events: bus closed")
	}
	if n := b.failNext[topic]; n > 0 {
		b.failNext[topic] = n - 1
		b.mu.Unlock()
		return errPublishFailed
	}
	// Un destinatario por grupo, el primero registrado.
	seen := make(map[string]bool)
	var targets []*subscriber
	for _, s := range b.subs[topic] {
		if !seen[s.group] {
			seen[s.group] = true
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic, group string, h events.Handler) error {
	sub := &subscriber{group: group, ch: make(chan []byte, 64)}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		list := b.subs[topic]
		for i, s := range list {
			if s == sub {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-sub.ch:
			// At-least-once: si el handler falla con un error transitorio,
			// el mensaje se reencola.
			if err := h(ctx, raw); err != nil && !errors.Is(err, events.ErrMalformed) {
				select {
				case sub.ch <- raw:
				default:
				}
			}
		}
	}
}

func (b *Bus) Ping(ctx context.Context) error { return nil }

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
