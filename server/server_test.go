package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/taxa/errors"
	taxatest "github.com/teranos/taxa/internal/testing"
	"github.com/teranos/taxa/internal/testregistry"
	"github.com/teranos/taxa/taxonomy"
)

// newTestServer returns a server over the in-memory fixture namespaces.
func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	registry := testregistry.New(t)
	engine := taxonomy.NewEngine(registry, taxonomy.Options{}, log)
	resolver := taxonomy.NewResolver(registry, log)
	return New(engine, resolver, opts, log)
}

type rpcResult struct {
	Results    []map[string]interface{} `json:"results"`
	TotalCount *int                     `json:"total_count"`
}

// post sends a raw body to the RPC endpoint.
func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// call invokes operation op with a single argument object and decodes the result.
func call(t *testing.T, h http.Handler, op string, args map[string]interface{}) rpcResult {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"method": "taxonomy_re_api." + op,
		"params": []interface{}{args},
	})
	require.NoError(t, err)

	rec := post(t, h, string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Result []rpcResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result, 1)
	return resp.Result[0]
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func strs(records []map[string]interface{}, field string) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i], _ = r[field].(string)
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":[{"status":"ok"}]}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestGetTaxon(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetTaxon, map[string]interface{}{"id": "100", "ns": taxatest.NCBI})
	require.Len(t, res.Results, 1)
	assert.Equal(t, "100", res.Results[0]["id"])
	assert.Equal(t, "Ancylobacter", res.Results[0]["scientific_name"])
	assert.Nil(t, res.TotalCount)
}

func TestGetLineage(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetLineage, map[string]interface{}{
		"id": "100", "ns": taxatest.NCBI, "select": []string{"rank", "id"},
	})
	require.Len(t, res.Results, 8)
	assert.Equal(t,
		[]string{"no rank", "no rank", "superkingdom", "phylum", "class", "order", "family", "genus"},
		strs(res.Results, "rank"))
	assert.Equal(t, "1", res.Results[0]["id"])
	assert.Equal(t, "100", res.Results[7]["id"])
}

func TestGetChildren(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetChildren, map[string]interface{}{"id": "28211", "ns": taxatest.NCBI})
	require.Len(t, res.Results, 20)
	require.NotNil(t, res.TotalCount)
	assert.Greater(t, *res.TotalCount, 20)

	ranks := map[string]bool{}
	for _, r := range strs(res.Results, "rank") {
		ranks[r] = true
	}
	assert.Equal(t, map[string]bool{"order": true, "no rank": true}, ranks)
}

func TestGetChildrenSearch(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetChildren, map[string]interface{}{
		"id": "28211", "ns": taxatest.NCBI, "search_text": "caulobacterales", "select": []string{"id"},
	})
	require.Len(t, res.Results, 1)
	assert.Equal(t, map[string]interface{}{"id": "204458", "ns": taxatest.NCBI}, res.Results[0])
}

func TestGetSiblings(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetSiblings, map[string]interface{}{
		"id": "287", "ns": taxatest.NCBI, "select": []string{"rank", "scientific_name"},
	})
	assert.Greater(t, len(res.Results), 1)
	require.NotNil(t, res.TotalCount)
	assert.Greater(t, *res.TotalCount, 1)

	ranks := map[string]bool{}
	for _, r := range strs(res.Results, "rank") {
		ranks[r] = true
	}
	assert.Equal(t, map[string]bool{"species": true, "species subgroup": true}, ranks)
	assert.NotContains(t, strs(res.Results, "id"), "287")
}

func TestSearchTaxa(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpSearchTaxa, map[string]interface{}{
		"ns":              taxatest.NCBI,
		"search_text":     "prefix:rhodobact",
		"limit":           10,
		"ranks":           []string{"species"},
		"include_strains": true,
		"offset":          20,
	})
	require.Len(t, res.Results, 10)
	require.NotNil(t, res.TotalCount)
	assert.Greater(t, *res.TotalCount, 10)
	for _, r := range res.Results {
		assert.Equal(t, "species", r["rank"])
		assert.Contains(t, strings.ToLower(r["scientific_name"].(string)), "rhodobact")
	}
}

func TestSearchSpecies(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	tests := []struct {
		ns   string
		want int
	}{
		{taxatest.NCBI, 10},
		{taxatest.GTDB, 1},
	}
	for _, tt := range tests {
		t.Run(tt.ns, func(t *testing.T) {
			res := call(t, h, OpSearchSpecies, map[string]interface{}{
				"ns": tt.ns, "search_text": "prefix:rhodobact", "limit": 10, "offset": 20,
			})
			require.Len(t, res.Results, tt.want)
			for _, r := range res.Results {
				assert.Equal(t, "species", r["rank"])
				assert.Contains(t, strings.ToLower(r["scientific_name"].(string)), "rhodobact")
			}
		})
	}
}

func TestSearchTaxaRDP(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpSearchTaxa, map[string]interface{}{"ns": taxatest.RDP, "search_text": "rhodobacter"})
	require.Len(t, res.Results, 20)
	require.NotNil(t, res.TotalCount)
	assert.Equal(t, 25, *res.TotalCount)
	for _, r := range res.Results {
		assert.Contains(t, strings.ToLower(r["name"].(string)), "rhodobacter")
		assert.NotContains(t, r, "rank")
		assert.NotContains(t, r, "scientific_name")
	}
}

func TestGetAssociatedWSObjects(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetAssociatedWSObjects, map[string]interface{}{
		"id": "287", "ns": taxatest.NCBI, "ts": taxatest.FixtureTS,
	})
	require.NotNil(t, res.TotalCount)
	assert.Equal(t, 2, *res.TotalCount)
	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		obj := r["ws_obj"].(map[string]interface{})
		ws := obj["workspace"].(map[string]interface{})
		assert.Contains(t, ws, "narr_name")
		assert.Equal(t, "NCBI RefSeq", ws["refdata_source"])
		assert.Contains(t, r["association"], "created")
	}
}

func TestGetTaxonFromWSObj(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetTaxonFromWSObj, map[string]interface{}{
		"obj_ref": "15792:10546:2", "ns": taxatest.NCBI, "ts": taxatest.FixtureTS,
	})
	require.Len(t, res.Results, 1)
	got := res.Results[0]
	assert.Equal(t, "287", got["id"])
	assert.Equal(t, taxatest.NCBI, got["ns"])
	assert.Equal(t, "species", got["rank"])
	assert.EqualValues(t, 11, got["gencode"])
	assert.EqualValues(t, 287, got["ncbi_taxon_id"])
}

func TestRPCErrors(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"not json", `{"method":`, http.StatusBadRequest, "InvalidParams"},
		{"body not an object", `[1,2]`, http.StatusBadRequest, "InvalidParams"},
		{"params not a list", `{"method":"taxonomy_re_api.get_taxon_from_ws_obj","params":"xyz!"}`, http.StatusBadRequest, "InvalidParams"},
		{"missing method", `{"params":"{}"}`, http.StatusBadRequest, "InvalidParams"},
		{"null method", `{"method":null,"params":"{}"}`, http.StatusBadRequest, "InvalidParams"},
		{"numeric method", `{"method":42,"params":[{}]}`, http.StatusBadRequest, "InvalidParams"},
		{"unknown method", `{"method":"xyz","params":"{}"}`, http.StatusNotFound, "UnknownMethod"},
		{"wrong service", `{"method":"other_api.get_taxon","params":[{"id":"1","ns":"ncbi_taxonomy"}]}`, http.StatusNotFound, "UnknownMethod"},
		{"unknown operation", `{"method":"taxonomy_re_api.get_everything","params":[{}]}`, http.StatusNotFound, "UnknownMethod"},
		{"missing params", `{"method":"taxonomy_re_api.get_lineage"}`, http.StatusBadRequest, "InvalidParams"},
		{"null params", `{"method":"taxonomy_re_api.get_lineage","params":null}`, http.StatusBadRequest, "InvalidParams"},
		{"empty params", `{"method":"taxonomy_re_api.get_lineage","params":[]}`, http.StatusBadRequest, "InvalidParams"},
		{"empty argument object", `{"method":"taxonomy_re_api.get_lineage","params":[{}]}`, http.StatusBadRequest, "InvalidParams"},
		{"argument not an object", `{"method":"taxonomy_re_api.get_lineage","params":["100"]}`, http.StatusBadRequest, "InvalidParams"},
		{"two argument objects", `{"method":"taxonomy_re_api.get_lineage","params":[{"id":"100","ns":"ncbi_taxonomy"},{}]}`, http.StatusBadRequest, "InvalidParams"},
		{"missing ns", `{"method":"taxonomy_re_api.get_lineage","params":[{"id":"100"}]}`, http.StatusBadRequest, "InvalidParams"},
		{"id of wrong type", `{"method":"taxonomy_re_api.get_taxon","params":[{"id":100,"ns":"ncbi_taxonomy"}]}`, http.StatusBadRequest, "InvalidParams"},
		{"limit of wrong type", `{"method":"taxonomy_re_api.get_children","params":[{"id":"28211","ns":"ncbi_taxonomy","limit":"ten"}]}`, http.StatusBadRequest, "InvalidParams"},
		{"negative offset", `{"method":"taxonomy_re_api.get_children","params":[{"id":"28211","ns":"ncbi_taxonomy","offset":-1}]}`, http.StatusBadRequest, "InvalidParams"},
		{"unknown namespace", `{"method":"taxonomy_re_api.get_taxon","params":[{"id":"100","ns":"silva"}]}`, http.StatusNotFound, "UnknownNamespace"},
		{"unknown taxon", `{"method":"taxonomy_re_api.get_taxon","params":[{"id":"999999","ns":"ncbi_taxonomy"}]}`, http.StatusNotFound, "NotFound"},
		{"siblings of root", `{"method":"taxonomy_re_api.get_siblings","params":[{"id":"1","ns":"ncbi_taxonomy"}]}`, http.StatusNotFound, "NotFound"},
		{"ranks on rankless namespace", `{"method":"taxonomy_re_api.search_taxa","params":[{"ns":"rdp_taxonomy","search_text":"rhodo","ranks":["genus"]}]}`, http.StatusBadRequest, "InvalidParams"},
		{"malformed obj_ref", `{"method":"taxonomy_re_api.get_taxon_from_ws_obj","params":[{"obj_ref":"15792/10546","ns":"ncbi_taxonomy"}]}`, http.StatusBadRequest, "InvalidParams"},
		{"no association", `{"method":"taxonomy_re_api.get_taxon_from_ws_obj","params":[{"obj_ref":"1:2:3","ns":"ncbi_taxonomy","ts":1569888060000}]}`, http.StatusNotFound, "NotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
			assert.NotEmpty(t, resp.Error.Message)
			assert.NotZero(t, resp.Error.Code)
			assert.Equal(t, rec.Header().Get(RequestIDHeader), resp.RequestID)
		})
	}
}

func TestUnsupportedVerb(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	for _, method := range []string{http.MethodDelete, http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
			assert.Equal(t, "UnsupportedTransport", decodeError(t, rec).Error.Kind)
		})
	}
}

func TestOversizedBody(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	body := `{"method":"taxonomy_re_api.get_taxon","params":[{"pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}]}`
	rec := post(t, h, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownParamsIgnored(t *testing.T) {
	h := newTestServer(t, Options{}).Handler()

	res := call(t, h, OpGetTaxon, map[string]interface{}{"id": "100", "ns": taxatest.NCBI, "verbose": true})
	require.Len(t, res.Results, 1)
}

func TestMethods(t *testing.T) {
	s := newTestServer(t, Options{Service: "taxa"})
	assert.Len(t, s.Methods(), 8)
	assert.Contains(t, s.Methods(), "taxa.get_lineage")

	body, _ := json.Marshal(map[string]interface{}{
		"method": "taxa.get_taxon",
		"params": []interface{}{map[string]string{"id": "1", "ns": taxatest.NCBI}},
	})
	rec := post(t, s.Handler(), string(bytes.TrimSpace(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCall(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx := context.Background()

	res, err := s.Call(ctx, OpGetLineage, json.RawMessage(`{"id":"100","ns":"ncbi_taxonomy","select":["id"]}`))
	require.NoError(t, err)
	assert.Len(t, res.Results, 8)

	_, err = s.Call(ctx, "get_everything", json.RawMessage(`{}`))
	assert.Equal(t, errors.KindUnknownMethod, errors.KindOf(err))

	_, err = s.Call(ctx, OpGetTaxon, json.RawMessage(`["100"]`))
	assert.Equal(t, errors.KindInvalidParams, errors.KindOf(err))
}
