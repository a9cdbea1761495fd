package core

import "time"

// LifecycleState es el estado de una versión dentro del ciclo de vida.
// Las transiciones válidas son: Staged → Stored → {Accepted | Rejected}.
// Un estado nunca se revisita.
type LifecycleState string

const (
	StateStaged   LifecycleState = "staged"
	StateStored   LifecycleState = "stored"
	StateAccepted LifecycleState = "accepted"
	StateRejected LifecycleState = "rejected"
)

// Terminal indica si el estado no admite más transiciones de ciclo de vida.
// Accepted sigue mutando su flag Active, pero nunca su estado.
func (s LifecycleState) Terminal() bool {
	return s == StateAccepted || s == StateRejected
}

// LogicalKey identifica el "slot" por el que compiten las versiones de un
// mismo dataset lógico. A lo sumo una versión Accepted por key está activa.
type LogicalKey struct {
	OwnerID         string `json:"owner_id"`
	DatasetKind     string `json:"dataset_kind"`
	ReportingPeriod string `json:"reporting_period"`
}

// IsZero reporta si algún componente de la key está vacío.
func (k LogicalKey) IsZero() bool {
	return k.OwnerID == "" || k.DatasetKind == "" || k.ReportingPeriod == ""
}

// DatasetVersion es la unidad que gestiona el coordinador.
type DatasetVersion struct {
	VersionID   string         `json:"version_id"`
	Key         LogicalKey     `json:"logical_key"`
	State       LifecycleState `json:"lifecycle_state"`
	Active      bool           `json:"is_active"`
	SubmitterID string         `json:"submitter_id"`

	// QAPending es true desde que se emitió el evento awaiting-qa hasta que
	// llega el veredicto. Es independiente del estado de durabilidad: un
	// dataset puede estar Stored y todavía QAPending, o al revés.
	QAPending bool `json:"qa_pending"`

	// BypassQA marca versiones que se auto-aceptan al confirmarse durables,
	// sin esperar veredicto externo.
	BypassQA bool `json:"bypass_qa,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
