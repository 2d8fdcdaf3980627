package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financas/internal/core"
	"financas/internal/finance"
	"financas/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := store.NewMemory()
	q := finance.NewQueryService(mem)
	m := finance.NewMutationService(mem)
	r := finance.NewRollover(mem, q, core.TrackedOwners())
	srv := NewServer(":0", q, m, r)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	if rec := doRequest(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", rec.Code)
	}
}

func TestCreateTransactionAndSnapshot(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"pessoa":"gabriel","mes":"2026-02","tipo":"receita","data":"05/02/2026","categoria":"Salário","valor":500000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("empty id in create response")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/months/2026-02/snapshot?pessoa=gabriel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot = %d, body %s", rec.Code, rec.Body.String())
	}
	var snap struct {
		Incomes []struct {
			ID       string `json:"id"`
			Category string `json:"categoria"`
		} `json:"receitas"`
		Balance int64 `json:"saldo"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Incomes) != 1 || snap.Incomes[0].ID != created.ID {
		t.Errorf("snapshot incomes = %+v, want the created transaction", snap.Incomes)
	}
	if snap.Balance != 500000 {
		t.Errorf("saldo = %d, want 500000", snap.Balance)
	}
}

func TestCreateTransactionRejectsSentinelOwner(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"pessoa":"todos","mes":"2026-02","tipo":"receita","categoria":"Salário","valor":100}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create with sentinel owner = %d, want 400", rec.Code)
	}
}

func TestUpdateTransactionNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPatch, "/api/transactions/missing",
		`{"categoria":"Outros"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", rec.Code)
	}
}

func TestExchangeRateRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/months/2026-02/cotacao", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get rate = %d", rec.Code)
	}
	var got struct {
		Rate float64 `json:"cotacao"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode rate: %v", err)
	}
	if got.Rate != core.DefaultExchangeRate {
		t.Errorf("unset rate = %v, want fallback %v", got.Rate, core.DefaultExchangeRate)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/months/2026-02/cotacao", `{"cotacao":5.2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put rate = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/months/2026-02/cotacao", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode rate: %v", err)
	}
	if got.Rate != 5.2 {
		t.Errorf("rate = %v, want 5.2", got.Rate)
	}
}

func TestRolloverEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions",
		`{"pessoa":"clara","mes":"2026-02","tipo":"receita","categoria":"Salário","valor":200000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/rollover/ensure", `{"mes":"2026-02"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ensure = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Target core.MonthKey `json:"destino"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Target != "2026-03" {
		t.Errorf("destino = %s, want 2026-03", resp.Target)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/months/2026-03/snapshot?pessoa=clara", "")
	var snap struct {
		Incomes []struct {
			Category string `json:"categoria"`
			Amount   int64  `json:"valor"`
		} `json:"receitas"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Incomes) != 1 || snap.Incomes[0].Category != core.CategoryCarryOver {
		t.Fatalf("target incomes = %+v, want one carried balance", snap.Incomes)
	}
	if snap.Incomes[0].Amount != 200000 {
		t.Errorf("carried amount = %d, want 200000", snap.Incomes[0].Amount)
	}
}

func TestInvalidMonthKey(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/months/2026-13/snapshot", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", rec.Code)
	}
}
