// Package alert notifica a operadores los errores que el coordinador no
// resuelve solo: veredictos conflictivos y violaciones de durabilidad del
// store. Son condiciones que nunca se auto-reparan, por eso se escalan.
package alert

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/datavault/internal/observability/logger"
)

// Notifier envía una alerta de operador. Las implementaciones no deben
// bloquear el camino crítico: un fallo de alerta se loguea y se descarta.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Nop descarta todas las alertas. Usado cuando SMTP no está configurado.
type Nop struct{}

func (Nop) Notify(ctx context.Context, subject, body string) error { return nil }

// ConflictingVerdict formatea y envía la alerta de veredicto imposible.
func ConflictingVerdict(ctx context.Context, n Notifier, versionID, detail string) {
	subject := fmt.Sprintf("[datavault] conflicting QA verdict for %s", versionID)
	body := fmt.Sprintf(
		"A QA verdict arrived for version %s that contradicts its terminal state.\n\n%s\n\nThis is never auto-resolved; please review the catalog row.\n",
		versionID, detail,
	)
	send(ctx, n, subject, body)
}

// StoreInconsistency formatea y envía la alerta de durabilidad rota.
func StoreInconsistency(ctx context.Context, n Notifier, versionID, detail string) {
	subject := fmt.Sprintf("[datavault] backing store inconsistency for %s", versionID)
	body := fmt.Sprintf(
		"The catalog has a row for version %s but the durable store cannot produce its payload.\n\n%s\n\nThe durability guarantee is broken for this version; manual intervention required.\n",
		versionID, detail,
	)
	send(ctx, n, subject, body)
}

func send(ctx context.Context, n Notifier, subject, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, subject, body); err != nil {
		logger.From(ctx).Warn("operator alert delivery failed",
			logger.String("subject", subject), logger.Err(err))
	}
}
