// Package http expone el coordinador sobre chi. La capa es deliberadamente
// fina: valida el request, delega en el coordinador y traduce la taxonomía
// de errores a status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/datavault/internal/catalog/core"
	"github.com/dropDatabas3/datavault/internal/lifecycle"
)

type Handlers struct {
	coord *lifecycle.Coordinator
}

func NewHandlers(coord *lifecycle.Coordinator) *Handlers {
	return &Handlers{coord: coord}
}

type ingestRequest struct {
	OwnerID         string          `json:"owner_id"`
	DatasetKind     string          `json:"dataset_kind"`
	ReportingPeriod string          `json:"reporting_period"`
	SubmitterID     string          `json:"submitter_id"`
	BypassQA        bool            `json:"bypass_qa"`
	Payload         json.RawMessage `json:"payload"`
}

type ingestResponse struct {
	VersionID string `json:"version_id"`
}

// Ingest: POST /v1/datasets
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	key := core.LogicalKey{
		OwnerID:         req.OwnerID,
		DatasetKind:     req.DatasetKind,
		ReportingPeriod: req.ReportingPeriod,
	}
	versionID, err := h.coord.Ingest(r.Context(), key, req.SubmitterID, req.Payload, lifecycle.IngestOptions{
		BypassQA: req.BypassQA,
	})
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	// 202: la versión quedó staged, QA decide después.
	WriteJSON(w, http.StatusAccepted, ingestResponse{VersionID: versionID})
}

// GetActive: GET /v1/datasets/active?owner_id=&dataset_kind=&reporting_period=
func (h *Handlers) GetActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := core.LogicalKey{
		OwnerID:         q.Get("owner_id"),
		DatasetKind:     q.Get("dataset_kind"),
		ReportingPeriod: q.Get("reporting_period"),
	}
	if key.IsZero() {
		WriteError(w, http.StatusBadRequest, "invalid_key", "owner_id, dataset_kind y reporting_period son requeridos")
		return
	}
	v, err := h.coord.GetActive(r.Context(), key)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// GetVersion: GET /v1/datasets/{versionID}
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	v, err := h.coord.GetVersion(r.Context(), versionID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// GetPayload: GET /v1/datasets/{versionID}/payload
func (h *Handlers) GetPayload(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	p, err := h.coord.GetPayload(r.Context(), versionID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p)
}

// ListVersions: GET /v1/datasets?owner_id=&dataset_kind=&reporting_period=
// Lista el historial de versiones de una logical key (auditoría), más
// reciente primero.
func (h *Handlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := core.LogicalKey{
		OwnerID:         q.Get("owner_id"),
		DatasetKind:     q.Get("dataset_kind"),
		ReportingPeriod: q.Get("reporting_period"),
	}
	if key.IsZero() {
		WriteError(w, http.StatusBadRequest, "invalid_key", "owner_id, dataset_kind y reporting_period son requeridos")
		return
	}
	vs, err := h.coord.ListVersions(r.Context(), key)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	if vs == nil {
		vs = []core.DatasetVersion{}
	}
	WriteJSON(w, http.StatusOK, vs)
}

func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, core.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "no existe la versión o no hay versión activa")
	case errors.Is(err, lifecycle.ErrTransientChannel):
		// El caller puede reintentar: nada de la ingesta persiste.
		WriteError(w, http.StatusServiceUnavailable, "transient_channel_failure", "event channel unavailable, retry")
	case errors.Is(err, lifecycle.ErrBackingStoreInconsistency):
		WriteError(w, http.StatusInternalServerError, "backing_store_inconsistency", "durability guarantee violated for this version")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
