package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
	"github.com/pfrederiksen/fisica-eventos/internal/event"
	"github.com/pfrederiksen/fisica-eventos/internal/metrics"
	"github.com/pfrederiksen/fisica-eventos/internal/pipeline"
	"github.com/pfrederiksen/fisica-eventos/internal/region"
)

type fakeRunner struct {
	table   *region.Table
	result  pipeline.Result
	queries []string
}

func (f *fakeRunner) Run(_ context.Context, query string) *pipeline.Result {
	f.queries = append(f.queries, query)
	res := f.result
	res.Query = query
	return &res
}

func (f *fakeRunner) Regions() []region.Region { return f.table.Regions() }
func (f *fakeRunner) Wildcard() string         { return f.table.Wildcard() }
func (f *fakeRunner) Year() int                { return 2025 }

func newFakeRunner(t *testing.T, events []*event.Event, diagnostics []*event.Event) *fakeRunner {
	t.Helper()
	cat, err := config.Default()
	require.NoError(t, err)
	return &fakeRunner{
		table: region.New(cat),
		result: pipeline.Result{
			Year:        2025,
			Events:      events,
			Diagnostics: diagnostics,
		},
	}
}

func spEvents() []*event.Event {
	return []*event.Event{
		event.New("IFT", "School on Strings", "30 de junho a 4 de julho de 2025", "https://ictp-saifr.org/e").
			WithLocation("São Paulo (IFT-UNESP)"),
		event.New("IFUSP", "Workshop de Plasma", "20 a 22 de agosto de 2025", "").
			WithLocation("São Paulo (IFUSP)"),
	}
}

type testServer struct {
	engine   *gin.Engine
	runner   *fakeRunner
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, runner *fakeRunner) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	h := NewHandler(runner)
	h.now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }
	return &testServer{
		engine:   NewServer(h, metrics.New(reg), reg),
		runner:   runner,
		registry: reg,
	}
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestIndex_Form(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, spEvents(), nil))

	rec := srv.get(t, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Sistema de Eventos de Física 2025")
	assert.Contains(t, body, `name="regiao"`)
	assert.Contains(t, body, "Mato Grosso do Sul")
	assert.NotContains(t, body, "Resultados para")
	assert.Empty(t, srv.runner.queries, "no query without regiao")
}

func TestIndex_Results(t *testing.T) {
	diag := []*event.Event{
		event.Sentinel(event.KindError, "UNICAMP", "[ERRO - UNICAMP] unexpected status code: 500").
			WithLocation("São Paulo (UNICAMP)"),
	}
	srv := newTestServer(t, newFakeRunner(t, spEvents(), diag))

	rec := srv.get(t, "/?regiao=s%C3%A3o+paulo")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, []string{"são paulo"}, srv.runner.queries)
	assert.Contains(t, body, "Resultados para São Paulo em 2025")
	assert.Contains(t, body, "São Paulo (IFT-UNESP)")
	assert.Contains(t, body, "School on Strings")
	assert.Contains(t, body, "30 de junho a 4 de julho de 2025")
	assert.Contains(t, body, `href="https://ictp-saifr.org/e"`)
	assert.Equal(t, 1, strings.Count(body, "Mais informações"), "events without link get no link")
	assert.Contains(t, body, "/eventos.ics?regiao=")
	assert.Contains(t, body, "Fontes sem resultados (1)")
	assert.Contains(t, body, "[ERRO - UNICAMP] unexpected status code: 500")
}

func TestIndex_NoResults(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, []*event.Event{
		event.Sentinel(event.KindNoResults, "", pipeline.MsgUnknownRegion),
	}, nil))

	rec := srv.get(t, "/?regiao=curitiba")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<div class="aviso">Nenhuma cidade reconhecida.</div>`)
	assert.NotContains(t, body, "eventos.ics")
}

func TestIndex_EscapesScrapedText(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, []*event.Event{
		event.New("X", "<script>alert(1)</script>", "1 a 2 de julho de 2025", "javascript:alert(1)").
			WithLocation("Teste"),
	}, nil))

	body := srv.get(t, "/?regiao=sp").Body.String()

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, `href="javascript:alert(1)"`)
}

func TestListEvents(t *testing.T) {
	diag := []*event.Event{event.Sentinel(event.KindEmpty, "IFT", "Nenhum evento de 2025 encontrado no IFT.")}
	srv := newTestServer(t, newFakeRunner(t, spEvents(), diag))

	rec := srv.get(t, "/api/eventos?regiao=sp")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp struct {
		Query  string `json:"query"`
		Year   int    `json:"year"`
		Found  bool   `json:"found"`
		Events []struct {
			Location string `json:"location"`
			Title    string `json:"title"`
			Date     string `json:"date"`
			Link     string `json:"link"`
			Kind     string `json:"kind"`
		} `json:"events"`
		Diagnostics []struct {
			Title string `json:"title"`
			Kind  string `json:"kind"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "sp", resp.Query)
	assert.Equal(t, 2025, resp.Year)
	assert.True(t, resp.Found)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "São Paulo (IFT-UNESP)", resp.Events[0].Location)
	assert.Equal(t, "30 de junho a 4 de julho de 2025", resp.Events[0].Date)
	assert.Equal(t, "event", resp.Events[0].Kind)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, "empty", resp.Diagnostics[0].Kind)
}

func TestListEvents_NoResults(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, []*event.Event{
		event.Sentinel(event.KindNoResults, "", pipeline.MsgNoEvents),
	}, nil))

	rec := srv.get(t, "/api/eventos?regiao=go")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["found"])
}

func TestMissingQuery(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, spEvents(), nil))

	for _, target := range []string{"/api/eventos", "/api/eventos?regiao=%20", "/eventos.ics"} {
		t.Run(target, func(t *testing.T) {
			rec := srv.get(t, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "regiao")
		})
	}
	assert.Empty(t, srv.runner.queries)
}

func TestListRegions(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, nil, nil))

	rec := srv.get(t, "/api/regioes")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Wildcard string          `json:"wildcard"`
		Regions  []region.Region `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "todos", resp.Wildcard)
	require.Len(t, resp.Regions, 7)
	assert.Equal(t, "São Paulo", resp.Regions[1].Name)
	assert.Contains(t, resp.Regions[1].Aliases, "sp")
}

func TestCalendar(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, spEvents(), nil))

	rec := srv.get(t, "/eventos.ics?regiao=s%C3%A3o+paulo")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="eventos-sao-paulo.ics"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "true", rec.Header().Get("X-Events-Found"))

	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:School on Strings")
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, nil, nil))

	rec := srv.get(t, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "2025-06-01T12:00:00Z", resp["timestamp"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, nil, nil))

	srv.get(t, "/health")
	rec := srv.get(t, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`fisica_eventos_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeRunner(t, nil, nil))

	assert.Equal(t, http.StatusNotFound, srv.get(t, "/nope").Code)
	assert.Equal(t, http.StatusNoContent, srv.get(t, "/favicon.ico").Code)
}

func TestCalendarFilename(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"sp", "eventos-sp.ics"},
		{"São Paulo", "eventos-sao-paulo.ics"},
		{"  Rio   de Janeiro ", "eventos-rio-de-janeiro.ics"},
		{`"; rm -rf /`, "eventos-rm-rf.ics"},
		{"!!!", "eventos.ics"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, calendarFilename(tt.query))
		})
	}
}
