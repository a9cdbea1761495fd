package lifecycle

import (
	"context"
	"errors"

	"github.com/dropDatabas3/datavault/internal/events"
	"github.com/dropDatabas3/datavault/internal/metrics"
	"github.com/dropDatabas3/datavault/internal/observability/logger"
)

// Subscriptions arma las suscripciones del coordinador para events.Run.
func (c *Coordinator) Subscriptions(workers int) []events.Subscription {
	return []events.Subscription{
		{Topic: events.TopicPayloadStored, Handler: c.StoredHandler(), Workers: workers},
		{Topic: events.TopicQAVerdict, Handler: c.VerdictHandler(), Workers: workers},
	}
}

// StoredHandler adapta HandleStored al contrato crudo del bus.
func (c *Coordinator) StoredHandler() events.Handler {
	return func(ctx context.Context, raw []byte) error {
		ev, err := events.DecodePayloadStored(raw)
		if err != nil {
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicPayloadStored, "malformed").Inc()
			return err
		}
		ctx = c.scoped(ctx, ev.CorrelationID)
		if err := c.HandleStored(ctx, ev); err != nil {
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicPayloadStored, "error").Inc()
			return err
		}
		metrics.EventsConsumedTotal.WithLabelValues(events.TopicPayloadStored, "applied").Inc()
		return nil
	}
}

// VerdictHandler adapta HandleVerdict al contrato crudo del bus. Un
// ErrConflictingVerdict ya fue logueado, contado y alertado: se ackea para
// que el transporte no lo reentregue (reintentar no cambia nada), pero nunca
// se pierde en silencio.
func (c *Coordinator) VerdictHandler() events.Handler {
	return func(ctx context.Context, raw []byte) error {
		ev, err := events.DecodeQAVerdict(raw)
		if err != nil {
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicQAVerdict, "malformed").Inc()
			return err
		}
		ctx = c.scoped(ctx, ev.CorrelationID)
		err = c.HandleVerdict(ctx, ev)
		switch {
		case err == nil:
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicQAVerdict, "applied").Inc()
			return nil
		case errors.Is(err, ErrConflictingVerdict):
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicQAVerdict, "conflict").Inc()
			return nil
		case errors.Is(err, events.ErrMalformed):
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicQAVerdict, "malformed").Inc()
			return err
		default:
			metrics.EventsConsumedTotal.WithLabelValues(events.TopicQAVerdict, "error").Inc()
			return err
		}
	}
}

func (c *Coordinator) scoped(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return logger.ToContext(ctx, logger.From(ctx).With(logger.CorrelationID(correlationID)))
}
