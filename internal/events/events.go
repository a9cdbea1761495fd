// Package events define el canal de eventos del coordinador: sobres tipados,
// codec JSON y la interfaz Bus. El transporte garantiza entrega at-least-once
// y puede reordenar; todos los handlers se escriben asumiendo duplicados.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dropDatabas3/datavault/internal/catalog/core"
)

// Topics del canal. El coordinador consume payload-stored y qa-verdict, y
// publica awaiting-qa.
const (
	TopicAwaitingQA    = "awaiting-qa"
	TopicPayloadStored = "payload-stored"
	TopicQAVerdict     = "qa-verdict"
)

// ErrMalformed marca un mensaje permanentemente inválido (IDs vacíos, JSON
// roto). El consumidor lo ackea y lo descarta: reintentarlo nunca va a
// mejorar el resultado.
var ErrMalformed = errors.New("events: malformed message")

// Verdict es el resultado del proceso de QA externo.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// AwaitingQA anuncia una versión recién ingestada, pendiente de store y QA.
type AwaitingQA struct {
	VersionID     string          `json:"version_id"`
	Key           core.LogicalKey `json:"logical_key"`
	BypassQA      bool            `json:"bypass_qa,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// PayloadStored confirma que el store durable escribió el payload.
type PayloadStored struct {
	VersionID     string `json:"version_id"`
	Digest        string `json:"digest,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// QAVerdict lleva el veredicto del actor de QA externo.
type QAVerdict struct {
	VersionID     string  `json:"version_id"`
	Verdict       Verdict `json:"verdict"`
	Reviewer      string  `json:"reviewer,omitempty"`
	Comment       string  `json:"comment,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
}

// Encode serializa un sobre a JSON.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("events: encode: %w", err)
	}
	return b, nil
}

// DecodePayloadStored parsea y valida un mensaje payload-stored.
func DecodePayloadStored(raw []byte) (PayloadStored, error) {
	var ev PayloadStored
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.VersionID == "" {
		return ev, fmt.Errorf("%w: empty version id", ErrMalformed)
	}
	return ev, nil
}

// DecodeQAVerdict parsea y valida un mensaje qa-verdict.
func DecodeQAVerdict(raw []byte) (QAVerdict, error) {
	var ev QAVerdict
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.VersionID == "" {
		return ev, fmt.Errorf("%w: empty version id", ErrMalformed)
	}
	if ev.Verdict != VerdictAccepted && ev.Verdict != VerdictRejected {
		return ev, fmt.Errorf("%w: unknown verdict %q", ErrMalformed, ev.Verdict)
	}
	return ev, nil
}

// DecodeAwaitingQA parsea y valida un mensaje awaiting-qa.
func DecodeAwaitingQA(raw []byte) (AwaitingQA, error) {
	var ev AwaitingQA
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.VersionID == "" {
		return ev, fmt.Errorf("%w: empty version id", ErrMalformed)
	}
	return ev, nil
}
