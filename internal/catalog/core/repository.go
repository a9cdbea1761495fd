package core

import "context"

// Repository define las operaciones del catálogo de metadata. El catálogo es
// la única fuente de verdad del estado de ciclo de vida y del flag Active;
// toda coordinación cross-proceso pasa por sus transacciones.
type Repository interface {
	// Insert crea la fila en estado Staged. Retorna ErrKeyCollision si el
	// versionID ya existe.
	Insert(ctx context.Context, v *DatasetVersion) error

	// Transition hace compare-and-swap del estado. Retorna ErrStaleTransition
	// si el estado actual no es `from`, ErrNotFound si la fila no existe.
	Transition(ctx context.Context, versionID string, from, to LifecycleState) error

	// ActivateExclusive, en una sola transacción, desactiva cualquier otra
	// versión de la misma logical key, marca versionID como Accepted y
	// Active=true, y limpia su flag QAPending. Es el único write path que
	// puede poner Active=true. Si la versión ya está activa es un no-op.
	// Retorna ErrTerminalState si la versión está Rejected.
	ActivateExclusive(ctx context.Context, versionID string, key LogicalKey) error

	// ClearQAPending apaga el flag QAPending sin tocar el estado.
	ClearQAPending(ctx context.Context, versionID string) error

	// GetByKey lista las versiones de una logical key. Con activeOnly=true
	// retorna cero o una fila.
	GetByKey(ctx context.Context, key LogicalKey, activeOnly bool) ([]DatasetVersion, error)

	// GetByID retorna la versión o ErrNotFound.
	GetByID(ctx context.Context, versionID string) (*DatasetVersion, error)

	// DeleteStaged borra una fila sólo si sigue en Staged. Existe únicamente
	// para el rollback de una ingesta cuya emisión de evento falló; las
	// versiones que avanzan de Staged nunca se borran (auditoría).
	DeleteStaged(ctx context.Context, versionID string) error

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close libera recursos del backend.
	Close()
}
