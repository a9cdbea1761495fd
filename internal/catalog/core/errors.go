package core

import "errors"

var (
	// ErrNotFound : la versión no existe en el catálogo.
	ErrNotFound = errors.New("catalog: version not found")

	// ErrKeyCollision : se intentó insertar un versionID ya existente.
	// La generación de IDs es única; esto es un bug de integridad, no se reintenta.
	ErrKeyCollision = errors.New("catalog: version id collision")

	// ErrStaleTransition : el CAS de Transition no encontró el estado esperado.
	// Con entrega at-least-once esto es un duplicado o un reorden, no un error.
	ErrStaleTransition = errors.New("catalog: stale transition")

	// ErrTerminalState : se intentó activar una versión en estado terminal
	// incompatible (Rejected). El caller decide si esto es un conflicto.
	ErrTerminalState = errors.New("catalog: version is in a terminal state")
)
