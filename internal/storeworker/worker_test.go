package storeworker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/datavault/internal/blobstore"
	"github.com/dropDatabas3/datavault/internal/catalog/core"
	"github.com/dropDatabas3/datavault/internal/events"
	"github.com/dropDatabas3/datavault/internal/stager"
)

// capturingBus registra las publicaciones sin transporte real.
type capturingBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	failPub   bool
}

func newCapturingBus() *capturingBus {
	return &capturingBus{published: make(map[string][][]byte)}
}

func (b *capturingBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPub {
		return context.DeadlineExceeded
	}
	b.published[topic] = append(b.published[topic], payload)
	return nil
}

func (b *capturingBus) Subscribe(ctx context.Context, topic, group string, h events.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *capturingBus) Ping(ctx context.Context) error { return nil }
func (b *capturingBus) Close() error                   { return nil }

func (b *capturingBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[topic])
}

var testKey = core.LogicalKey{OwnerID: "o1", DatasetKind: "sfdr", ReportingPeriod: "2026"}

func awaitingQA(t *testing.T, versionID string) []byte {
	t.Helper()
	raw, err := events.Encode(events.AwaitingQA{VersionID: versionID, Key: testKey})
	require.NoError(t, err)
	return raw
}

func TestHandlerStoresAndConfirms(t *testing.T) {
	staging := stager.New()
	store := blobstore.NewMemory()
	bus := newCapturingBus()
	w := New(staging, store, bus)
	ctx := context.Background()

	require.NoError(t, staging.Put("v1", []byte(`{"x":1}`)))

	require.NoError(t, w.Handler()(ctx, awaitingQA(t, "v1")))

	// El blob quedó escrito con digest verificable.
	p, err := store.Fetch(ctx, "v1")
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1}`, string(p))

	// Y la confirmación salió con el digest del contenido.
	require.Equal(t, 1, bus.count(events.TopicPayloadStored))
	ev, err := events.DecodePayloadStored(bus.published[events.TopicPayloadStored][0])
	require.NoError(t, err)
	require.Equal(t, "v1", ev.VersionID)
	require.Equal(t, blobstore.Digest([]byte(`{"x":1}`)), ev.Digest)
}

// Entrega duplicada del awaiting-qa con el blob ya escrito: re-confirma sin
// reescribir.
func TestHandlerDuplicateDeliveryReconfirms(t *testing.T) {
	staging := stager.New()
	store := blobstore.NewMemory()
	bus := newCapturingBus()
	w := New(staging, store, bus)
	ctx := context.Background()

	require.NoError(t, staging.Put("v1", []byte("data")))
	require.NoError(t, w.Handler()(ctx, awaitingQA(t, "v1")))
	// El coordinador ya retiró el payload del stager al confirmar.
	staging.Remove("v1")

	require.NoError(t, w.Handler()(ctx, awaitingQA(t, "v1")))
	require.Equal(t, 2, bus.count(events.TopicPayloadStored))
	require.Equal(t, 1, store.Len())
}

// Sin payload en staging y sin blob: la ingesta fue revertida, no hay nada
// que confirmar.
func TestHandlerNoPayloadAnywhereIsNoop(t *testing.T) {
	w := New(stager.New(), blobstore.NewMemory(), newCapturingBus())
	require.NoError(t, w.Handler()(context.Background(), awaitingQA(t, "ghost")))
}

// Si la confirmación no sale, el handler falla y el transporte reentrega.
func TestHandlerFailedConfirmationPropagates(t *testing.T) {
	staging := stager.New()
	store := blobstore.NewMemory()
	bus := newCapturingBus()
	bus.failPub = true
	w := New(staging, store, bus)

	require.NoError(t, staging.Put("v1", []byte("data")))
	require.Error(t, w.Handler()(context.Background(), awaitingQA(t, "v1")))

	// El blob quedó escrito: el reintento sólo re-confirma.
	bus.failPub = false
	require.NoError(t, w.Handler()(context.Background(), awaitingQA(t, "v1")))
	require.Equal(t, 1, bus.count(events.TopicPayloadStored))
}

func TestHandlerMalformedMessage(t *testing.T) {
	w := New(stager.New(), blobstore.NewMemory(), newCapturingBus())
	err := w.Handler()(context.Background(), []byte(`{"version_id":""}`))
	require.ErrorIs(t, err, events.ErrMalformed)
}
