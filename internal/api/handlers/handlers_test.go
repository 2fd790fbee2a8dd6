package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"

	"github.com/smbcash/cashflow-dashboard/internal/engine"
	"github.com/smbcash/cashflow-dashboard/internal/jobs"
	"github.com/smbcash/cashflow-dashboard/internal/jobs/inmemory"
	"github.com/smbcash/cashflow-dashboard/internal/model"
	"github.com/smbcash/cashflow-dashboard/internal/store"
)

func seedTransactions(t *testing.T, st store.Store, amounts ...int64) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -len(amounts))
	for i, a := range amounts {
		now := time.Now().UTC()
		tx := &model.Transaction{
			ID:          uuid.NewString(),
			Date:        base.AddDate(0, 0, i),
			Description: fmt.Sprintf("seed %d", i),
			Amount:      decimal.NewFromInt(a),
			Source:      model.SourceManual,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction() error = %v", err)
		}
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v (body %s)", err, rec.Body.String())
	}
}

func TestCreateAndGetTransaction(t *testing.T) {
	st := store.NewMemory()
	h := NewTransactionsHandler(st, nil, decimal.Zero, zerolog.Nop())

	body := `{"date":"2024-05-01","description":"Invoice 42","amount":1250.50,"category":"Revenue"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var created model.Transaction
	decodeJSON(t, rec, &created)
	if created.ID == "" {
		t.Error("created transaction has no ID")
	}
	if created.Source != model.SourceManual {
		t.Errorf("source = %q, want manual", created.Source)
	}
	if !created.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Errorf("amount = %s, want 1250.50", created.Amount)
	}

	rec = httptest.NewRecorder()
	h.GetTransaction(rec, httptest.NewRequest(http.MethodGet, "/api/transactions/"+created.ID, nil), created.ID)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetTransaction(rec, httptest.NewRequest(http.MethodGet, "/api/transactions/missing", nil), "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	h := NewTransactionsHandler(store.NewMemory(), nil, decimal.Zero, zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing description", `{"amount":100}`},
		{"zero amount", `{"description":"x","amount":0}`},
		{"bad date", `{"description":"x","amount":10,"date":"01/02/2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateTransaction(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDeleteTransactionStatusCodes(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	h := NewTransactionsHandler(st, nil, decimal.Zero, zerolog.Nop())

	now := time.Now().UTC()
	manual := &model.Transaction{ID: uuid.NewString(), Date: now, Description: "m", Amount: decimal.NewFromInt(-5), Source: model.SourceManual, CreatedAt: now, UpdatedAt: now}
	synced := &model.Transaction{ID: uuid.NewString(), Date: now, Description: "s", Amount: decimal.NewFromInt(-5), Source: model.SourceExternalSync, ExternalID: "x1", CreatedAt: now, UpdatedAt: now}
	for _, tx := range []*model.Transaction{manual, synced} {
		if err := st.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction() error = %v", err)
		}
	}

	rec := httptest.NewRecorder()
	h.DeleteTransaction(rec, httptest.NewRequest(http.MethodDelete, "/", nil), manual.ID)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete manual status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.DeleteTransaction(rec, httptest.NewRequest(http.MethodDelete, "/", nil), synced.ID)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete synced status = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.DeleteTransaction(rec, httptest.NewRequest(http.MethodDelete, "/", nil), "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing status = %d, want 404", rec.Code)
	}
}

func TestListTransactionsBadParams(t *testing.T) {
	h := NewTransactionsHandler(store.NewMemory(), nil, decimal.Zero, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions?start_date=nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start_date status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions?type=transfer", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d, want 400", rec.Code)
	}

	// Empty store returns an empty array, not null.
	rec = httptest.NewRecorder()
	h.ListTransactions(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list body = %s, want []", got)
	}
}

func TestTransactionSummary(t *testing.T) {
	st := store.NewMemory()
	h := NewTransactionsHandler(st, nil, decimal.Zero, zerolog.Nop())
	seedTransactions(t, st, 1000, -400, 600, -100)

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/transactions/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var summary engine.Summary
	decodeJSON(t, rec, &summary)
	if summary.TotalIncome != 1600 {
		t.Errorf("TotalIncome = %v, want 1600", summary.TotalIncome)
	}
	if summary.TotalExpenses != -500 {
		t.Errorf("TotalExpenses = %v, want -500", summary.TotalExpenses)
	}
}

func TestEnqueueSync(t *testing.T) {
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	h := NewTransactionsHandler(store.NewMemory(), queue, decimal.Zero, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.EnqueueSync(rec, httptest.NewRequest(http.MethodPost, "/api/transactions/sync", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["job_id"] == "" {
		t.Error("response has no job_id")
	}

	saved, err := jobStore.GetJob(context.Background(), resp["job_id"])
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if saved.TriggeredBy != jobs.TriggerManual {
		t.Errorf("TriggeredBy = %q, want manual", saved.TriggeredBy)
	}
}

func TestForecastGenerateAndList(t *testing.T) {
	st := store.NewMemory()
	h := NewForecastsHandler(st, decimal.Zero, zerolog.Nop())
	seedTransactions(t, st, 1000, -200, 500, -100, 300)

	body := `{"days_ahead":30}`
	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/forecasts/generate", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var result engine.Result
	decodeJSON(t, rec, &result)
	if len(result.Points) != 30 {
		t.Errorf("points = %d, want 30", len(result.Points))
	}
	if result.Model == "" {
		t.Error("result has no model name")
	}

	stored, err := st.ListForecasts(context.Background(), time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListForecasts() error = %v", err)
	}
	if len(stored) != 30 {
		t.Errorf("persisted points = %d, want 30", len(stored))
	}

	rec = httptest.NewRecorder()
	h.ListForecasts(rec, httptest.NewRequest(http.MethodGet, "/api/forecasts?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &listResp)
	if listResp.Count != 5 {
		t.Errorf("count = %d, want 5", listResp.Count)
	}
}

func TestForecastGenerateBadHorizon(t *testing.T) {
	h := NewForecastsHandler(store.NewMemory(), decimal.Zero, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/forecasts/generate", strings.NewReader(`{"days_ahead":9999}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestForecastLatest(t *testing.T) {
	st := store.NewMemory()
	h := NewForecastsHandler(st, decimal.Zero, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/forecasts/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("latest with no forecasts status = %d, want 404", rec.Code)
	}

	seedTransactions(t, st, 1000, 200, 300)
	rec = httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/forecasts/generate", strings.NewReader(`{"days_ahead":10}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/forecasts/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int    `json:"count"`
		Trend string `json:"trend"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Count == 0 {
		t.Error("latest returned no forecasts")
	}
	if resp.Trend == "" {
		t.Error("latest returned no trend")
	}
}

func TestForecastDeleteOld(t *testing.T) {
	st := store.NewMemory()
	h := NewForecastsHandler(st, decimal.Zero, zerolog.Nop())

	old := time.Now().UTC().AddDate(0, 0, -10).Truncate(24 * time.Hour)
	rows := []*store.Forecast{
		{ID: uuid.NewString(), Date: old, PredictedBalance: 1, ModelVersion: "linear", CreatedAt: time.Now()},
		{ID: uuid.NewString(), Date: time.Now().UTC().AddDate(0, 0, 5), PredictedBalance: 2, ModelVersion: "linear", CreatedAt: time.Now()},
	}
	if err := st.SaveForecasts(context.Background(), rows); err != nil {
		t.Fatalf("SaveForecasts() error = %v", err)
	}

	rec := httptest.NewRecorder()
	h.DeleteOld(rec, httptest.NewRequest(http.MethodDelete, "/api/forecasts/old", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]int
	decodeJSON(t, rec, &resp)
	if resp["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", resp["deleted"])
	}
}

func TestSimulate(t *testing.T) {
	st := store.NewMemory()
	h := NewSimulationsHandler(st, decimal.Zero, zerolog.Nop())
	seedTransactions(t, st, 1000, -300, 500, -100, 250)

	body := `{"scenario_name":"growth","revenue_change_percent":10,"days_ahead":30}`
	rec := httptest.NewRecorder()
	h.Simulate(rec, httptest.NewRequest(http.MethodPost, "/api/simulations", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var result engine.SimulationResult
	decodeJSON(t, rec, &result)
	if result.Name != "growth" {
		t.Errorf("name = %q, want growth", result.Name)
	}
	if len(result.Points) != 30 {
		t.Errorf("points = %d, want 30", len(result.Points))
	}
	if result.Baseline == nil {
		t.Error("baseline comparison missing")
	}
}

func TestSimulateInvalidParams(t *testing.T) {
	h := NewSimulationsHandler(store.NewMemory(), decimal.Zero, zerolog.Nop())

	body := `{"scenario_name":"bad","revenue_change_percent":-150,"days_ahead":30}`
	rec := httptest.NewRecorder()
	h.Simulate(rec, httptest.NewRequest(http.MethodPost, "/api/simulations", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSimulateBatchEndpoint(t *testing.T) {
	st := store.NewMemory()
	h := NewSimulationsHandler(st, decimal.Zero, zerolog.Nop())
	seedTransactions(t, st, 800, -150, 420)

	var scenarios []string
	for i := 0; i < 3; i++ {
		scenarios = append(scenarios, fmt.Sprintf(`{"scenario_name":"s%d","revenue_change_percent":%d,"days_ahead":20}`, i, i*5))
	}
	body := `{"scenarios":[` + strings.Join(scenarios, ",") + `]}`

	rec := httptest.NewRecorder()
	h.SimulateBatch(rec, httptest.NewRequest(http.MethodPost, "/api/simulations/batch", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results        []engine.SimulationResult `json:"results"`
		TotalScenarios int                       `json:"total_scenarios"`
	}
	decodeJSON(t, rec, &resp)
	if resp.TotalScenarios != 3 || len(resp.Results) != 3 {
		t.Errorf("total = %d, results = %d, want 3/3", resp.TotalScenarios, len(resp.Results))
	}
	for i, r := range resp.Results {
		if r.Name != fmt.Sprintf("s%d", i) {
			t.Errorf("result %d name = %q, out of order", i, r.Name)
		}
	}

	rec = httptest.NewRecorder()
	h.SimulateBatch(rec, httptest.NewRequest(http.MethodPost, "/api/simulations/batch", strings.NewReader(`{"scenarios":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d, want 400", rec.Code)
	}
}

func TestPresets(t *testing.T) {
	h := NewSimulationsHandler(store.NewMemory(), decimal.Zero, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Presets(rec, httptest.NewRequest(http.MethodGet, "/api/simulations/presets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Presets []Preset `json:"presets"`
	}
	decodeJSON(t, rec, &resp)
	if len(resp.Presets) != 5 {
		t.Fatalf("presets = %d, want 5", len(resp.Presets))
	}
	for _, p := range resp.Presets {
		if err := p.Parameters.Validate(); err != nil {
			t.Errorf("preset %q has invalid parameters: %v", p.Name, err)
		}
	}
}

// fakeOAuth implements OAuthClient for the connect flow tests.
type fakeOAuth struct {
	exchangeErr error
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://login.example.com/authorize?state=" + state
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Now().Add(30 * time.Minute)}, nil
}

func (f *fakeOAuth) FirstTenantID(_ context.Context, _ *oauth2.Token) (string, error) {
	return "tenant-42", nil
}

func TestXeroConnectFlow(t *testing.T) {
	st := store.NewMemory()
	h := NewXeroHandler(st, &fakeOAuth{}, true, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodGet, "/api/xero/connect", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d, want 200", rec.Code)
	}
	var connectResp map[string]string
	decodeJSON(t, rec, &connectResp)
	state := connectResp["state"]
	if state == "" || connectResp["authorization_url"] == "" {
		t.Fatal("connect response missing state or authorization_url")
	}

	rec = httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/xero/callback?code=abc&state="+state, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("callback status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	conn, err := st.GetConnection(context.Background())
	if err != nil {
		t.Fatalf("GetConnection() error = %v", err)
	}
	if conn.TenantID != "tenant-42" {
		t.Errorf("tenant = %q, want tenant-42", conn.TenantID)
	}

	// States are single use.
	rec = httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/xero/callback?code=abc&state="+state, nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("replayed state status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/xero/status", nil))
	var status map[string]interface{}
	decodeJSON(t, rec, &status)
	if status["connected"] != true {
		t.Errorf("status connected = %v, want true", status["connected"])
	}

	rec = httptest.NewRecorder()
	h.Disconnect(rec, httptest.NewRequest(http.MethodDelete, "/api/xero/disconnect", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("disconnect status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/xero/status", nil))
	status = nil
	decodeJSON(t, rec, &status)
	if status["connected"] != false || status["demo_mode"] != true {
		t.Errorf("status after disconnect = %v, want disconnected demo mode", status)
	}
}

func TestXeroUnconfigured(t *testing.T) {
	h := NewXeroHandler(store.NewMemory(), nil, false, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Connect(rec, httptest.NewRequest(http.MethodGet, "/api/xero/connect", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("connect status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/xero/callback?code=a&state=b", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("callback status = %d, want 503", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	jobStore := inmemory.NewStore()
	ctx := context.Background()
	if err := jobStore.SaveJob(ctx, &jobs.SyncTransactionsJob{JobID: "j1", TriggeredBy: jobs.TriggerManual, Status: jobs.JobStatusCompleted, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	h := NewJobsHandler(jobStore, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/j1", nil), "j1")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}
