// Package storeworker implementa el rol del servicio de almacenamiento:
// consume awaiting-qa, lee el payload del stager del coordinador, lo escribe
// en el store durable y publica payload-stored. Las confirmaciones viajan
// por el canal de eventos, pero el worker corre en el mismo proceso que el
// coordinador: el stager es su fuente de payloads. Separarlo en otro
// deployment requeriría una fuente de payloads compartida.
package storeworker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/datavault/internal/blobstore"
	"github.com/dropDatabas3/datavault/internal/events"
	"github.com/dropDatabas3/datavault/internal/observability/logger"
	"github.com/dropDatabas3/datavault/internal/stager"
)

// Worker escribe payloads al store durable y confirma por el bus.
type Worker struct {
	staging *stager.Stager
	store   blobstore.Gateway
	bus     events.Bus
}

func New(staging *stager.Stager, store blobstore.Gateway, bus events.Bus) *Worker {
	return &Worker{staging: staging, store: store, bus: bus}
}

// Subscription arma la suscripción del worker para events.Run.
func (w *Worker) Subscription(workers int) events.Subscription {
	return events.Subscription{
		Topic:   events.TopicAwaitingQA,
		Handler: w.Handler(),
		Workers: workers,
	}
}

// Handler procesa un awaiting-qa. Idempotente: si el blob ya existe
// (entrega duplicada), re-publica la confirmación sin reescribir.
func (w *Worker) Handler() events.Handler {
	return func(ctx context.Context, raw []byte) error {
		ev, err := events.DecodeAwaitingQA(raw)
		if err != nil {
			return err
		}
		log := logger.From(ctx).With(
			logger.VersionID(ev.VersionID),
			logger.CorrelationID(ev.CorrelationID),
		)

		payload, ok := w.staging.Peek(ev.VersionID)
		if !ok {
			// Sin payload en staging: o la confirmación ya corrió (el blob
			// existe) o la ingesta fue revertida. Sólo confirmamos si el
			// blob está.
			if _, ferr := w.store.Fetch(ctx, ev.VersionID); ferr == nil {
				return w.confirm(ctx, ev, log)
			}
			log.Warn("awaiting-qa for version with no staged payload, ignoring")
			return nil
		}

		err = w.store.Store(ctx, ev.VersionID, payload)
		if err != nil && !errors.Is(err, blobstore.ErrExists) {
			return fmt.Errorf("storeworker: store %s: %w", ev.VersionID, err)
		}
		return w.confirm(ctx, ev, log)
	}
}

func (w *Worker) confirm(ctx context.Context, ev events.AwaitingQA, log *zap.Logger) error {
	stored := events.PayloadStored{
		VersionID:     ev.VersionID,
		CorrelationID: ev.CorrelationID,
	}
	if p, err := w.store.Fetch(ctx, ev.VersionID); err == nil {
		stored.Digest = blobstore.Digest(p)
	}
	raw, err := events.Encode(stored)
	if err != nil {
		return err
	}
	if err := w.bus.Publish(ctx, events.TopicPayloadStored, raw); err != nil {
		// Sin ack: el awaiting-qa se reentrega y la confirmación se
		// reintenta; Store es idempotente vía ErrExists.
		return fmt.Errorf("storeworker: confirm %s: %w", ev.VersionID, err)
	}
	log.Info("payload durably stored, confirmation published")
	return nil
}
