package memory

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/datavault/internal/events"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []byte, 1)
	go func() {
		_ = b.Subscribe(ctx, "topic-a", "g1", func(_ context.Context, raw []byte) error {
			got <- raw
			return nil
		})
	}()
	// Esperar a que el suscriptor se registre.
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.subs["topic-a"]) == 1
	})

	if err := b.Publish(ctx, "topic-a", []byte("hello")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case raw := <-got:
		if string(raw) != "hello" {
			t.Fatalf("got %q", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout esperando entrega")
	}
}

func TestFailNextInjectsPublishFailure(t *testing.T) {
	b := New()
	b.FailNext("topic-a", 1)

	if err := b.Publish(context.Background(), "topic-a", []byte("x")); err == nil {
		t.Fatal("Publish debería fallar")
	}
	// El siguiente Publish funciona.
	if err := b.Publish(context.Background(), "topic-a", []byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestTransientHandlerErrorRedelivers(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int64
	done := make(chan struct{})
	go func() {
		_ = b.Subscribe(ctx, "topic-a", "g1", func(_ context.Context, raw []byte) error {
			n := atomic.AddInt64(&calls, 1)
			if n == 1 {
				return fmt.Errorf("fallo transitorio")
			}
			close(done)
			return nil
		})
	}()
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.subs["topic-a"]) == 1
	})

	if err := b.Publish(ctx, "topic-a", []byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("el mensaje no fue reentregado")
	}
	if n := atomic.LoadInt64(&calls); n != 2 {
		t.Fatalf("handler llamado %d veces, want 2", n)
	}
}

func TestMalformedIsNotRedelivered(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int64
	go func() {
		_ = b.Subscribe(ctx, "topic-a", "g1", func(_ context.Context, raw []byte) error {
			atomic.AddInt64(&calls, 1)
			return events.ErrMalformed
		})
	}()
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.subs["topic-a"]) == 1
	})

	if err := b.Publish(ctx, "topic-a", []byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Dar tiempo a una eventual (incorrecta) reentrega.
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Fatalf("handler llamado %d veces, want 1", n)
	}
}

func TestOneDeliveryPerGroup(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g1, g2 int64
	for i := 0; i < 2; i++ {
		go func() {
			_ = b.Subscribe(ctx, "topic-a", "g1", func(_ context.Context, raw []byte) error {
				atomic.AddInt64(&g1, 1)
				return nil
			})
		}()
	}
	go func() {
		_ = b.Subscribe(ctx, "topic-a", "g2", func(_ context.Context, raw []byte) error {
			atomic.AddInt64(&g2, 1)
			return nil
		})
	}()
	waitFor(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.subs["topic-a"]) == 3
	})

	if err := b.Publish(ctx, "topic-a", []byte("x")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	waitFor(t, func() bool {
		return atomic.LoadInt64(&g1) == 1 && atomic.LoadInt64(&g2) == 1
	})
}

func TestPublishAfterClose(t *testing.T) {
	b := New()
	_ = b.Close()
	if err := b.Publish(context.Background(), "topic-a", []byte("x")); err == nil {
		t.Fatal("Publish tras Close debería fallar")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatal("timeout esperando condición")
	}
}
