package lifecycle

import "errors"

var (
	// ErrInvalidInput : logical key incompleta, submitter vacío o payload
	// vacío. No se acepta la ingesta.
	ErrInvalidInput = errors.New("lifecycle: invalid ingest input")

	// ErrTransientChannel : la emisión del evento awaiting-qa falló y la
	// ingesta fue revertida por completo. El caller puede reintentar.
	ErrTransientChannel = errors.New("lifecycle: transient event channel failure")

	// ErrConflictingVerdict : llegó un veredicto lógicamente imposible para
	// el estado terminal de la versión (ej. accepted sobre una Rejected).
	// Se escala a operador, nunca se resuelve solo ni pisa el estado.
	ErrConflictingVerdict = errors.New("lifecycle: conflicting qa verdict")

	// ErrBackingStoreInconsistency : el catálogo tiene la fila pero el store
	// durable no puede producir el payload. La garantía de durabilidad está
	// rota; fatal para el request, no se reintenta.
	ErrBackingStoreInconsistency = errors.New("lifecycle: backing store inconsistency")
)
