package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/datavault/internal/blobstore"
	"github.com/dropDatabas3/datavault/internal/catalog/core"
	catalogmem "github.com/dropDatabas3/datavault/internal/catalog/memory"
	"github.com/dropDatabas3/datavault/internal/events"
	membus "github.com/dropDatabas3/datavault/internal/events/memory"
	"github.com/dropDatabas3/datavault/internal/lifecycle"
	"github.com/dropDatabas3/datavault/internal/stager"
)

type testAPI struct {
	srv   *httptest.Server
	coord *lifecycle.Coordinator
	bus   *membus.Bus
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	catalog := catalogmem.New()
	staging := stager.New()
	store := blobstore.NewMemory()
	bus := membus.New()
	coord := lifecycle.New(catalog, staging, store, bus, lifecycle.Options{})

	handler := NewRouter(RouterDeps{
		Handlers: NewHandlers(coord),
		Registry: prometheus.NewRegistry(),
		Catalog:  catalog,
		Bus:      bus,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, coord: coord, bus: bus}
}

func (a *testAPI) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func (a *testAPI) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(a.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func ingestBody(payload string) map[string]any {
	return map[string]any{
		"owner_id":         "owner-1",
		"dataset_kind":     "sfdr",
		"reporting_period": "2026",
		"submitter_id":     "submitter-1",
		"payload":          json.RawMessage(payload),
	}
}

func TestIngestEndpoint(t *testing.T) {
	api := newTestAPI(t)

	resp := api.postJSON(t, "/v1/datasets", ingestBody(`{"x":1}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out struct {
		VersionID string `json:"version_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.VersionID)

	// La versión queda consultable de inmediato.
	vresp := api.get(t, "/v1/datasets/"+out.VersionID)
	defer vresp.Body.Close()
	require.Equal(t, http.StatusOK, vresp.StatusCode)

	var v core.DatasetVersion
	require.NoError(t, json.NewDecoder(vresp.Body).Decode(&v))
	require.Equal(t, core.StateStaged, v.State)
}

func TestIngestValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	body := ingestBody(`{"x":1}`)
	body["owner_id"] = ""
	resp := api.postJSON(t, "/v1/datasets", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestChannelFailureIs503(t *testing.T) {
	api := newTestAPI(t)
	api.bus.FailNext(events.TopicAwaitingQA, 1)

	resp := api.postJSON(t, "/v1/datasets", ingestBody(`{"x":1}`))
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetActiveFlow(t *testing.T) {
	api := newTestAPI(t)
	q := "?owner_id=owner-1&dataset_kind=sfdr&reporting_period=2026"

	// Sin versión activa: 404.
	resp := api.get(t, "/v1/datasets/active"+q)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Ingestar, confirmar y aceptar por detrás de la API.
	ctx := context.Background()
	key := core.LogicalKey{OwnerID: "owner-1", DatasetKind: "sfdr", ReportingPeriod: "2026"}
	id, err := api.coord.Ingest(ctx, key, "submitter-1", []byte(`{"x":1}`), lifecycle.IngestOptions{})
	require.NoError(t, err)
	require.NoError(t, api.coord.HandleStored(ctx, events.PayloadStored{VersionID: id}))
	require.NoError(t, api.coord.HandleVerdict(ctx, events.QAVerdict{VersionID: id, Verdict: events.VerdictAccepted}))

	resp = api.get(t, "/v1/datasets/active"+q)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v core.DatasetVersion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	require.Equal(t, id, v.VersionID)
	require.True(t, v.Active)
}

func TestGetActiveRequiresFullKey(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get(t, "/v1/datasets/active?owner_id=owner-1")
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVersionNotFound(t *testing.T) {
	api := newTestAPI(t)
	resp := api.get(t, "/v1/datasets/ghost")
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetPayloadWhileStaged(t *testing.T) {
	api := newTestAPI(t)

	resp := api.postJSON(t, "/v1/datasets", ingestBody(`{"x":1}`))
	var out struct {
		VersionID string `json:"version_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()

	presp := api.get(t, "/v1/datasets/"+out.VersionID+"/payload")
	defer presp.Body.Close()
	require.Equal(t, http.StatusOK, presp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(presp.Body).Decode(&payload))
	require.Equal(t, float64(1), payload["x"])
}

func TestListVersionsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	q := "?owner_id=owner-1&dataset_kind=sfdr&reporting_period=2026"

	resp := api.postJSON(t, "/v1/datasets", ingestBody(`{"x":1}`))
	resp.Body.Close()

	lresp := api.get(t, "/v1/datasets"+q)
	defer lresp.Body.Close()
	require.Equal(t, http.StatusOK, lresp.StatusCode)

	var vs []core.DatasetVersion
	require.NoError(t, json.NewDecoder(lresp.Body).Decode(&vs))
	require.Len(t, vs, 1)

	// Key sin versiones: lista vacía, no null.
	eresp := api.get(t, "/v1/datasets?owner_id=nadie&dataset_kind=sfdr&reporting_period=2026")
	defer eresp.Body.Close()
	var empty []core.DatasetVersion
	require.NoError(t, json.NewDecoder(eresp.Body).Decode(&empty))
	require.NotNil(t, empty)
	require.Empty(t, empty)

	// Key incompleta: 400.
	bresp := api.get(t, "/v1/datasets?owner_id=owner-1")
	bresp.Body.Close()
	require.Equal(t, http.StatusBadRequest, bresp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get(t, "/healthz")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.get(t, "/readyz")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.get(t, "/metrics")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIngestRejectsNonJSONContentType(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Post(api.srv.URL+"/v1/datasets", "text/plain", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
