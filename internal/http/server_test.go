package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"h2olog/internal/cache"
	"h2olog/internal/core"
	"h2olog/internal/insight"
	"h2olog/internal/log"
	"h2olog/internal/services"
	"h2olog/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	blobs := memory.New()
	logger := log.Discard()
	clock := func() time.Time { return testNow }

	entries := services.NewEntryStore(ctx, blobs, logger, services.WithClock(clock))
	settings := services.NewSettingsStore(ctx, blobs, logger)
	dash := services.NewDashboard(entries, settings, services.DashboardConfig{
		Location:  time.UTC,
		TrendDays: 7,
		Now:       clock,
	})
	req := insight.NewRequester(nil, insight.RequesterConfig{Location: time.UTC}, logger)
	svc := insight.NewService(req, entries, cache.NewLRUCache[insight.Result](4, time.Hour), time.Second)

	srv, err := NewServer(":0", Deps{
		Dashboard: dash,
		Insights:  svc,
		Requester: req,
		Blobs:     blobs,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() {
		svc.Wait()
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func do(t *testing.T, srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func addEntry(t *testing.T, srv *Server, typ, amount string) core.LogEntry {
	t.Helper()
	e, err := srv.entries.Add(context.Background(), core.Draft{Type: core.EntryType(typ), Amount: mustVolume(t, amount)})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	return e
}

func mustVolume(t *testing.T, s string) float64 {
	t.Helper()
	v, err := core.ParseVolume(s)
	if err != nil {
		t.Fatalf("ParseVolume(%q): %v", s, err)
	}
	return v
}

func TestOverviewAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"<h1>Today</h1>", "+250 ml", "Intake is low today"} {
		if !strings.Contains(body, want) {
			t.Errorf("overview body missing %q", want)
		}
	}
	if got := rr.Header().Get("X-Request-ID"); got == "" {
		t.Error("missing X-Request-ID header")
	}
	if got := rr.Header().Get("Content-Security-Policy"); !strings.Contains(got, "default-src 'self'") {
		t.Errorf("unexpected CSP %q", got)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestUnknownPathsAndProbes(t *testing.T) {
	srv := newTestServer(t)

	if rr := do(t, srv, http.MethodGet, "/nope", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/.env", nil); rr.Code != http.StatusNotFound {
		t.Errorf("probe status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/entries", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /entries status=%d", rr.Code)
	}
}

func TestCreateEntry(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/entries", url.Values{"type": {"intake"}, "amount": {"abc"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid amount status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Enter an amount") {
		t.Errorf("form did not show the validation message")
	}
	if srv.entries.Len() != 0 {
		t.Fatalf("invalid entry was stored")
	}

	rr = do(t, srv, http.MethodPost, "/entries", url.Values{"type": {"intake"}, "amount": {"250"}, "note": {"tea"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("create status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	list := srv.entries.List(context.Background())
	if len(list) != 1 || list[0].Amount != 250 || list[0].Note != "tea" || list[0].Type != core.Intake {
		t.Fatalf("unexpected entries %+v", list)
	}
	if !list[0].Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v, want %v", list[0].Timestamp, testNow)
	}

	rr = do(t, srv, http.MethodGet, "/history", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "tea") {
		t.Fatalf("history status=%d", rr.Code)
	}
}

func TestCreateEntryFromPresetButton(t *testing.T) {
	srv := newTestServer(t)

	// bodies in the order a browser submits the entry form
	tests := []struct {
		name string
		body string
	}{
		{name: "empty amount field", body: "type=intake&amount=&time=&note=&preset=500"},
		{name: "typed amount", body: "type=intake&amount=250&time=&note=&preset=500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, req)
			if rr.Code != http.StatusSeeOther {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			list := srv.entries.List(context.Background())
			if len(list) == 0 || list[0].Amount != 500 {
				t.Fatalf("newest entry = %+v, want 500 ml", list)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/entries/new?type=intake", nil)
	if !strings.Contains(rr.Body.String(), `name="preset" value="250"`) {
		t.Errorf("entry form does not render preset buttons")
	}
}

func TestEntryForm(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/entries/new?type=output", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Add Output") {
		t.Fatalf("form status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/entries/new?type=coffee", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad type status=%d", rr.Code)
	}
}

func confirmToken(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Header().Get("Location")
	token, ok := strings.CutPrefix(loc, "/confirm/")
	if !ok || token == "" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	return token
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	srv := newTestServer(t)
	e := addEntry(t, srv, "intake", "300")

	token := confirmToken(t, do(t, srv, http.MethodPost, "/entries/"+e.ID+"/delete", url.Values{}))
	if srv.entries.Len() != 1 {
		t.Fatal("entry deleted before confirmation")
	}

	rr := do(t, srv, http.MethodGet, "/confirm/"+token, nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "300 ml intake") {
		t.Fatalf("confirm page status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/confirm/"+token, url.Values{"decision": {"confirm"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("decide status=%d", rr.Code)
	}
	if srv.entries.Len() != 0 {
		t.Fatal("entry not deleted")
	}

	// tokens are single use
	rr = do(t, srv, http.MethodPost, "/confirm/"+token, url.Values{"decision": {"confirm"}})
	if rr.Code != http.StatusGone {
		t.Fatalf("reused token status=%d", rr.Code)
	}
}

func TestCancelKeepsEntry(t *testing.T) {
	srv := newTestServer(t)
	e := addEntry(t, srv, "output", "200")

	token := confirmToken(t, do(t, srv, http.MethodPost, "/entries/"+e.ID+"/delete", url.Values{}))
	rr := do(t, srv, http.MethodPost, "/confirm/"+token, url.Values{"decision": {"cancel"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("cancel status=%d", rr.Code)
	}
	if srv.entries.Len() != 1 {
		t.Fatal("cancel removed the entry")
	}
}

func TestDeleteMissingEntryRedirects(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/entries/missing/delete", url.Values{})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/history" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestClearRequiresPhrase(t *testing.T) {
	srv := newTestServer(t)
	addEntry(t, srv, "intake", "250")
	addEntry(t, srv, "output", "150")

	token := confirmToken(t, do(t, srv, http.MethodPost, "/entries/clear", url.Values{}))

	rr := do(t, srv, http.MethodPost, "/confirm/"+token, url.Values{"decision": {"confirm"}, "phrase": {"delete"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("wrong phrase status=%d", rr.Code)
	}
	if srv.entries.Len() != 2 {
		t.Fatal("entries cleared without the phrase")
	}

	rr = do(t, srv, http.MethodPost, "/confirm/"+token, url.Values{"decision": {"confirm"}, "phrase": {"DELETE"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("confirm status=%d", rr.Code)
	}
	if srv.entries.Len() != 0 {
		t.Fatal("entries not cleared")
	}
}

func TestConfirmUnknownToken(t *testing.T) {
	srv := newTestServer(t)
	if rr := do(t, srv, http.MethodGet, "/confirm/nope", nil); rr.Code != http.StatusGone {
		t.Fatalf("status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/confirm/nope", url.Values{"decision": {"maybe"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad decision status=%d", rr.Code)
	}
}

func TestPresetSettings(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/settings/presets", url.Values{"kind": {"intake"}, "value": {"330"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("add status=%d", rr.Code)
	}
	if got := srv.settings.Presets(context.Background(), core.Intake); !containsInt(got, 330) {
		t.Fatalf("preset not added: %v", got)
	}

	rr = do(t, srv, http.MethodPost, "/settings/presets", url.Values{"kind": {"intake"}, "value": {"330"}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "already exists") {
		t.Fatalf("duplicate status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/settings/presets/delete", url.Values{"kind": {"intake"}, "value": {"330"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("remove status=%d", rr.Code)
	}
	if containsInt(srv.settings.Presets(context.Background(), core.Intake), 330) {
		t.Fatal("preset not removed")
	}

	if rr := do(t, srv, http.MethodGet, "/settings", nil); rr.Code != http.StatusOK {
		t.Fatalf("settings page status=%d", rr.Code)
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestInsightsWithoutKey(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/insights", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("trigger status=%d", rr.Code)
	}
	srv.insights.Wait()

	rr = do(t, srv, http.MethodGet, "/insights", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("insights status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No API key is configured") {
		t.Errorf("missing not-configured notice")
	}
	if !strings.Contains(body, insight.TextNotConfigured) {
		t.Errorf("missing not-configured result text")
	}
}

func TestPendingInsightRefreshesFromHead(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/insights", nil)
	srv.render(rr, req, http.StatusOK, "insights.html", newInsightView(insight.State{Pending: true}, true, time.UTC))

	body := rr.Body.String()
	meta := strings.Index(body, `http-equiv="refresh"`)
	if meta < 0 {
		t.Fatalf("pending page has no refresh: %s", body)
	}
	if head := strings.Index(body, "</head>"); meta > head {
		t.Errorf("refresh is outside <head>")
	}

	rr = do(t, srv, http.MethodGet, "/insights", nil)
	if strings.Contains(rr.Body.String(), `http-equiv="refresh"`) {
		t.Errorf("idle insights page should not refresh")
	}
}

func TestAPIEntriesAndSummary(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(`{"type":"intake","amount":500}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.LogEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Amount != 500 {
		t.Fatalf("unexpected entry %+v", created)
	}

	rr = do(t, srv, http.MethodPost, "/api/entries", url.Values{"type": {"output"}, "amount": {"200"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("form create status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/entries", url.Values{"type": {"output"}, "amount": {"-1"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid create status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/entries", nil)
	var list []core.LogEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("list = %v, err %v", list, err)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?date=2024-03-15", nil)
	var sum summaryJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalIntake != 500 || sum.TotalOutput != 200 || sum.Balance != 300 || sum.CountIntake != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.OutputRatio != 0.4 {
		t.Errorf("output ratio = %v, want 0.4", sum.OutputRatio)
	}

	if rr := do(t, srv, http.MethodGet, "/api/summary?date=15/03/2024", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date status=%d", rr.Code)
	}
}

func TestAPISeries(t *testing.T) {
	srv := newTestServer(t)
	addEntry(t, srv, "intake", "250")

	rr := do(t, srv, http.MethodGet, "/api/series?days=3", nil)
	var points []seriesPointJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	if points[2].Date != "2024-03-15" || points[2].IntakeTotal != 250 || points[0].IntakeTotal != 0 {
		t.Fatalf("unexpected points %+v", points)
	}

	for _, q := range []string{"0", "91", "x"} {
		if rr := do(t, srv, http.MethodGet, "/api/series?days="+q, nil); rr.Code != http.StatusBadRequest {
			t.Errorf("days=%s status=%d", q, rr.Code)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/static/app.css", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}
}
