// Package lifecycle implementa el coordinador de ciclo de vida de versiones
// de dataset: Staged → Stored → {Accepted | Rejected}, con a lo sumo una
// versión activa por logical key.
//
// El coordinador mantiene consistentes tres subsistemas que fallan de forma
// independiente — stager en memoria, catálogo relacional y canal de eventos —
// sin asumir orden ni unicidad de entrega de los eventos. Toda exclusión
// mutua cross-proceso se delega en las transacciones del catálogo; acá no
// hay locks de proceso para el invariante single-active.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/datavault/internal/alert"
	"github.com/dropDatabas3/datavault/internal/blobstore"
	"github.com/dropDatabas3/datavault/internal/cache"
	"github.com/dropDatabas3/datavault/internal/catalog/core"
	"github.com/dropDatabas3/datavault/internal/events"
	"github.com/dropDatabas3/datavault/internal/metrics"
	"github.com/dropDatabas3/datavault/internal/observability/logger"
	"github.com/dropDatabas3/datavault/internal/stager"
)

// Coordinator es seguro para uso concurrente.
type Coordinator struct {
	catalog core.Repository
	staging *stager.Stager
	store   blobstore.Gateway
	bus     events.Bus
	cache   cache.Client
	alerts  alert.Notifier

	payloadTTL time.Duration
}

// Options ajusta dependencias opcionales del coordinador.
type Options struct {
	// Cache es el cache read-through de payloads. Nil deshabilita el cache.
	Cache cache.Client
	// Alerts recibe las alertas de operador. Nil usa alert.Nop.
	Alerts alert.Notifier
	// PayloadTTL es el TTL de payloads cacheados (default 5m).
	PayloadTTL time.Duration
}

func New(catalog core.Repository, staging *stager.Stager, store blobstore.Gateway, bus events.Bus, opts Options) *Coordinator {
	if opts.Alerts == nil {
		opts.Alerts = alert.Nop{}
	}
	if opts.PayloadTTL == 0 {
		opts.PayloadTTL = 5 * time.Minute
	}
	return &Coordinator{
		catalog:    catalog,
		staging:    staging,
		store:      store,
		bus:        bus,
		cache:      opts.Cache,
		alerts:     opts.Alerts,
		payloadTTL: opts.PayloadTTL,
	}
}

// IngestOptions modifica una ingesta puntual.
type IngestOptions struct {
	// BypassQA hace que la versión se acepte y active sola al confirmarse
	// durable, sin esperar veredicto.
	BypassQA bool
	// CorrelationID permite propagar un correlation id externo. Vacío acuña
	// uno nuevo.
	CorrelationID string
}

// Ingest acepta un dataset: lo retiene en el stager, crea la fila Staged en
// el catálogo y emite awaiting-qa. Si la emisión falla, ni el stager ni el
// catálogo retienen rastro del intento y el caller recibe
// ErrTransientChannel. La ingesta no espera QA: retorna apenas el evento
// quedó durablemente encolado.
func (c *Coordinator) Ingest(ctx context.Context, key core.LogicalKey, submitterID string, payload []byte, opts IngestOptions) (string, error) {
	if key.IsZero() || submitterID == "" || len(payload) == 0 {
		metrics.IngestsTotal.WithLabelValues("failed").Inc()
		return "", ErrInvalidInput
	}

	versionID := uuid.NewString()
	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := logger.From(ctx).With(
		logger.VersionID(versionID),
		logger.CorrelationID(correlationID),
		logger.OwnerID(key.OwnerID),
		logger.DatasetKind(key.DatasetKind),
		logger.ReportingPeriod(key.ReportingPeriod),
	)

	if err := c.staging.Put(versionID, payload); err != nil {
		// El ID recién acuñado ya estaba en staging: bug de integridad.
		metrics.IngestsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("ingest %s: %w", versionID, err)
	}
	metrics.StagerEntries.Set(float64(c.staging.Size()))

	v := &core.DatasetVersion{
		VersionID:   versionID,
		Key:         key,
		State:       core.StateStaged,
		SubmitterID: submitterID,
		QAPending:   !opts.BypassQA,
		BypassQA:    opts.BypassQA,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.catalog.Insert(ctx, v); err != nil {
		c.staging.Remove(versionID)
		metrics.StagerEntries.Set(float64(c.staging.Size()))
		metrics.IngestsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("ingest %s: %w", versionID, err)
	}

	ev := events.AwaitingQA{
		VersionID:     versionID,
		Key:           key,
		BypassQA:      opts.BypassQA,
		CorrelationID: correlationID,
	}
	raw, err := events.Encode(ev)
	if err == nil {
		err = c.bus.Publish(ctx, events.TopicAwaitingQA, raw)
	}
	if err != nil {
		// Rollback completo: la ingesta no está aceptada hasta que el
		// evento quedó encolado.
		c.staging.Remove(versionID)
		metrics.StagerEntries.Set(float64(c.staging.Size()))
		if derr := c.catalog.DeleteStaged(ctx, versionID); derr != nil && !errors.Is(derr, core.ErrNotFound) {
			log.Error("ingest rollback failed", logger.Err(derr))
		}
		metrics.IngestsTotal.WithLabelValues("rolled_back").Inc()
		log.Warn("ingest rolled back, event channel unavailable", logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrTransientChannel, err)
	}

	metrics.IngestsTotal.WithLabelValues("accepted").Inc()
	log.Info("dataset version staged, awaiting durable store and qa")
	return versionID, nil
}

// GetActive retorna la única versión activa de la key, o core.ErrNotFound.
func (c *Coordinator) GetActive(ctx context.Context, key core.LogicalKey) (*core.DatasetVersion, error) {
	vs, err := c.catalog.GetByKey(ctx, key, true)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, core.ErrNotFound
	}
	// Por invariante hay a lo sumo una.
	return &vs[0], nil
}

// GetVersion retorna la metadata de una versión por ID.
func (c *Coordinator) GetVersion(ctx context.Context, versionID string) (*core.DatasetVersion, error) {
	return c.catalog.GetByID(ctx, versionID)
}

// ListVersions lista todas las versiones de una logical key, más reciente
// primero. Las versiones desplazadas o rechazadas quedan consultables para
// auditoría.
func (c *Coordinator) ListVersions(ctx context.Context, key core.LogicalKey) ([]core.DatasetVersion, error) {
	return c.catalog.GetByKey(ctx, key, false)
}

// GetPayload resuelve el payload de una versión: stager → cache → store
// durable. Si el catálogo tiene la fila pero ninguna fuente puede producir
// el payload, retorna ErrBackingStoreInconsistency: la garantía de
// durabilidad está rota y eso nunca se degrada a un "no encontrado"
// silencioso.
func (c *Coordinator) GetPayload(ctx context.Context, versionID string) ([]byte, error) {
	v, err := c.catalog.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if p, ok := c.staging.Peek(versionID); ok {
		return p, nil
	}

	if v.State == core.StateStaged {
		// Invariante roto: fila Staged sin entrada en el stager.
		return nil, c.inconsistency(ctx, versionID, "staged row with no stager entry")
	}

	if c.cache != nil {
		if p, err := c.cache.Get(ctx, versionID); err == nil {
			return p, nil
		}
	}

	p, err := c.store.Fetch(ctx, versionID)
	switch {
	case err == nil:
		if c.cache != nil {
			if cerr := c.cache.Set(ctx, versionID, p, c.payloadTTL); cerr != nil {
				logger.From(ctx).Warn("payload cache set failed",
					logger.VersionID(versionID), logger.Err(cerr))
			}
		}
		return p, nil
	case errors.Is(err, blobstore.ErrNotFound):
		return nil, c.inconsistency(ctx, versionID, "durable store has no payload for a stored version")
	case errors.Is(err, blobstore.ErrCorrupted):
		return nil, c.inconsistency(ctx, versionID, "durable store payload failed digest verification")
	default:
		return nil, fmt.Errorf("get payload %s: %w", versionID, err)
	}
}

func (c *Coordinator) inconsistency(ctx context.Context, versionID, detail string) error {
	metrics.StoreInconsistenciesTotal.Inc()
	logger.From(ctx).Error("backing store inconsistency",
		logger.VersionID(versionID), logger.String("detail", detail))
	alert.StoreInconsistency(ctx, c.alerts, versionID, detail)
	return fmt.Errorf("%w: %s: %s", ErrBackingStoreInconsistency, versionID, detail)
}
