package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/datavault/internal/alert"
	"github.com/dropDatabas3/datavault/internal/catalog/core"
	"github.com/dropDatabas3/datavault/internal/events"
	"github.com/dropDatabas3/datavault/internal/metrics"
	"github.com/dropDatabas3/datavault/internal/observability/logger"
	"github.com/dropDatabas3/datavault/internal/stager"
)

// Los handlers de eventos asumen entrega at-least-once y posiblemente
// reordenada. Toda precondición de transición que falla por duplicado o
// reorden es un no-op benigno; el único caso que se escala es el veredicto
// lógicamente imposible (downgrade de un estado terminal).

// HandleStored procesa la confirmación del store durable: retira el payload
// del stager y transiciona Staged → Stored. Ambos pasos toleran duplicados.
func (c *Coordinator) HandleStored(ctx context.Context, ev events.PayloadStored) error {
	log := logger.From(ctx).With(
		logger.VersionID(ev.VersionID),
		logger.CorrelationID(ev.CorrelationID),
	)

	if _, err := c.staging.Take(ev.VersionID); err != nil {
		if !errors.Is(err, stager.ErrNotFound) {
			return err
		}
		// Confirmación duplicada: el payload ya fue retirado.
	}
	metrics.StagerEntries.Set(float64(c.staging.Size()))

	err := c.catalog.Transition(ctx, ev.VersionID, core.StateStaged, core.StateStored)
	switch {
	case err == nil:
		log.Info("dataset version durably stored")
	case errors.Is(err, core.ErrStaleTransition):
		// Evento duplicado o reordenado; el estado actual manda. No se
		// retorna acá: una versión bypass-qa pudo quedar Stored sin activar
		// si la activación de una entrega anterior falló a mitad de camino.
		log.Debug("stored confirmation was stale")
	case errors.Is(err, core.ErrNotFound):
		// Evento para una versión desconocida (ej. ingesta revertida).
		log.Warn("stored confirmation for unknown version, ignoring")
		return nil
	default:
		return fmt.Errorf("handle stored %s: %w", ev.VersionID, err)
	}

	// Las versiones bypass-qa se activan apenas son durables. La condición
	// se evalúa sobre el estado actual, así una reentrega retoma una
	// activación pendiente en vez de descartarla como stale.
	v, err := c.catalog.GetByID(ctx, ev.VersionID)
	if err != nil {
		return fmt.Errorf("handle stored %s: %w", ev.VersionID, err)
	}
	if v.BypassQA && !v.Active && v.State == core.StateStored {
		if err := c.activate(ctx, v, log); err != nil {
			return err
		}
		log.Info("bypass-qa version activated on store confirmation")
	}
	return nil
}

// HandleVerdict procesa el veredicto del QA externo.
//
// Accept activa la versión vía ActivateExclusive: la versión activa anterior
// (si hay) queda Accepted con Active=false, nunca se borra. Reject es
// terminal. Un veredicto que contradice un estado terminal retorna
// ErrConflictingVerdict: se loguea, se alerta al operador y jamás pisa el
// estado existente.
func (c *Coordinator) HandleVerdict(ctx context.Context, ev events.QAVerdict) error {
	log := logger.From(ctx).With(
		logger.VersionID(ev.VersionID),
		logger.CorrelationID(ev.CorrelationID),
		logger.Verdict(string(ev.Verdict)),
	)

	v, err := c.catalog.GetByID(ctx, ev.VersionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Warn("qa verdict for unknown version, ignoring")
			return nil
		}
		return fmt.Errorf("handle verdict %s: %w", ev.VersionID, err)
	}

	switch ev.Verdict {
	case events.VerdictAccepted:
		return c.handleAccept(ctx, v, log)
	case events.VerdictRejected:
		return c.handleReject(ctx, v, log)
	default:
		return fmt.Errorf("%w: unknown verdict %q", events.ErrMalformed, ev.Verdict)
	}
}

func (c *Coordinator) handleAccept(ctx context.Context, v *core.DatasetVersion, log *zap.Logger) error {
	if v.State == core.StateRejected {
		return c.conflict(ctx, v.VersionID,
			fmt.Sprintf("accepted verdict arrived for version already rejected (state=%s)", v.State))
	}
	if v.Active {
		// Veredicto duplicado para una versión ya activa: no-op.
		log.Debug("duplicate accept for active version, ignoring")
		return nil
	}
	return c.activate(ctx, v, log)
}

func (c *Coordinator) activate(ctx context.Context, v *core.DatasetVersion, log *zap.Logger) error {
	// Registrar a quién desplazamos antes del swap, para la traza de quién
	// sometió qué (el catálogo es quien garantiza la atomicidad del swap).
	prev, err := c.GetActive(ctx, v.Key)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("activate %s: %w", v.VersionID, err)
	}

	if err := c.catalog.ActivateExclusive(ctx, v.VersionID, v.Key); err != nil {
		if errors.Is(err, core.ErrTerminalState) {
			// Carrera con un reject: tratado igual que el conflicto directo.
			return c.conflict(ctx, v.VersionID, "activation raced with a rejected terminal state")
		}
		return fmt.Errorf("activate %s: %w", v.VersionID, err)
	}
	metrics.ActivationSwapsTotal.Inc()

	if prev != nil && prev.VersionID != v.VersionID {
		fields := []zap.Field{
			logger.String("superseded_version_id", prev.VersionID),
		}
		if prev.SubmitterID != v.SubmitterID {
			fields = append(fields, logger.String("superseded_submitter_id", prev.SubmitterID))
		}
		log.Info("active version swapped", fields...)
	} else {
		log.Info("version accepted and activated")
	}
	return nil
}

func (c *Coordinator) handleReject(ctx context.Context, v *core.DatasetVersion, log *zap.Logger) error {
	// El reject puede llegar antes que la confirmación del store (reorden),
	// así que se intenta desde Stored y desde Staged.
	err := c.catalog.Transition(ctx, v.VersionID, core.StateStored, core.StateRejected)
	if errors.Is(err, core.ErrStaleTransition) {
		err = c.catalog.Transition(ctx, v.VersionID, core.StateStaged, core.StateRejected)
	}
	switch {
	case err == nil:
		if cerr := c.catalog.ClearQAPending(ctx, v.VersionID); cerr != nil && !errors.Is(cerr, core.ErrNotFound) {
			log.Warn("clear qa pending failed", logger.Err(cerr))
		}
		log.Info("version rejected by qa")
		return nil
	case errors.Is(err, core.ErrStaleTransition):
		cur, gerr := c.catalog.GetByID(ctx, v.VersionID)
		if gerr != nil {
			return fmt.Errorf("handle reject %s: %w", v.VersionID, gerr)
		}
		if cur.State == core.StateRejected {
			log.Debug("duplicate reject, ignoring")
			return nil
		}
		// Reject sobre una versión ya aceptada: downgrade imposible.
		return c.conflict(ctx, v.VersionID,
			fmt.Sprintf("rejected verdict arrived for version in terminal state %s", cur.State))
	case errors.Is(err, core.ErrNotFound):
		log.Warn("reject for unknown version, ignoring")
		return nil
	default:
		return fmt.Errorf("handle reject %s: %w", v.VersionID, err)
	}
}

func (c *Coordinator) conflict(ctx context.Context, versionID, detail string) error {
	metrics.ConflictingVerdictsTotal.Inc()
	logger.From(ctx).Error("conflicting qa verdict",
		logger.VersionID(versionID), logger.String("detail", detail))
	alert.ConflictingVerdict(ctx, c.alerts, versionID, detail)
	return fmt.Errorf("%w: %s: %s", ErrConflictingVerdict, versionID, detail)
}
