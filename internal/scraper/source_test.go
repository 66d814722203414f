package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
	"github.com/pfrederiksen/fisica-eventos/internal/event"
	"github.com/pfrederiksen/fisica-eventos/internal/logger"
)

// serveFixture starts a server answering every request with a fixture file.
func serveFixture(t *testing.T, name string) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body) // nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func pointAt(src config.Source, url string) config.Source {
	src.URL = url
	src.BaseURL = url
	return src
}

func TestSourceFetch(t *testing.T) {
	server := serveFixture(t, "ifsc.html")
	src := pointAt(catalogSource(t, "IFSC-USP"), server.URL)

	s, err := New(src, NewClient(0), WithYear(2025))
	require.NoError(t, err)

	assert.Equal(t, "IFSC-USP", s.Name())
	assert.Equal(t, "São Paulo (IFSC-USP)", s.Label())
	assert.Equal(t, server.URL, s.URL())

	events := s.Fetch(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, "Workshop de Óptica Quântica", events[0].Title)
	assert.False(t, events[0].IsSentinel())
}

func TestSourceFetch_Empty(t *testing.T) {
	server := serveFixture(t, "ifsc.html")
	src := pointAt(catalogSource(t, "IFSC-USP"), server.URL)

	s, err := New(src, NewClient(0), WithYear(2030))
	require.NoError(t, err)

	events := s.Fetch(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, event.KindEmpty, events[0].Kind)
	assert.Equal(t, "Nenhum evento de 2030 encontrado no IFSC-USP.", events[0].Title)
	assert.Empty(t, events[0].DateText)
	assert.Empty(t, events[0].Link)
}

func TestSourceFetch_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := New(pointAt(catalogSource(t, "UFMG"), server.URL), NewClient(0))
	require.NoError(t, err)

	events := s.Fetch(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, event.KindError, events[0].Kind)
	assert.Equal(t, "[ERRO - UFMG] unexpected status code: 500", events[0].Title)
	assert.Empty(t, events[0].DateText)
	assert.Empty(t, events[0].Link)
}

func TestSourceFetch_Logger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	var global bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(logger.New(logger.LevelDebug, &global))
	t.Cleanup(func() { logger.SetDefault(prev) })

	t.Run("injected logger receives source logs", func(t *testing.T) {
		global.Reset()
		var buf bytes.Buffer
		s, err := New(pointAt(catalogSource(t, "UFMG"), server.URL), NewClient(0),
			WithLogger(logger.New(logger.LevelDebug, &buf)))
		require.NoError(t, err)

		s.Fetch(context.Background())

		assert.Contains(t, buf.String(), "source failed")
		assert.Contains(t, buf.String(), `"source":"UFMG"`)
		assert.Empty(t, global.String())
	})

	t.Run("nop logger silences source logs", func(t *testing.T) {
		global.Reset()
		s, err := New(pointAt(catalogSource(t, "UFMG"), server.URL), NewClient(0),
			WithLogger(logger.Nop()))
		require.NoError(t, err)

		s.Fetch(context.Background())

		assert.Empty(t, global.String())
	})

	t.Run("default logger is used without the option", func(t *testing.T) {
		global.Reset()
		s, err := New(pointAt(catalogSource(t, "UFMG"), server.URL), NewClient(0))
		require.NoError(t, err)

		s.Fetch(context.Background())

		assert.Contains(t, global.String(), "source failed")
	})
}

func TestSourceFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	s, err := New(pointAt(catalogSource(t, "CBPF"), server.URL), NewClient(0),
		WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	events := s.Fetch(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, event.KindError, events[0].Kind)
	assert.True(t, strings.HasPrefix(events[0].Title, "[ERRO - CBPF] "), events[0].Title)
}

func TestSourceFetch_InsecureSource(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("testdata", "ufrj.html"))
	require.NoError(t, err)

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body) // nolint:errcheck
	}))
	defer server.Close()

	src := pointAt(catalogSource(t, "UFRJ"), server.URL)
	require.True(t, src.InsecureSkipVerify)

	s, err := New(src, NewClient(0))
	require.NoError(t, err)
	events := s.Fetch(context.Background())
	require.Len(t, events, 3)
	assert.Equal(t, "Escola de Física", events[0].Title)

	src.InsecureSkipVerify = false
	s, err = New(src, NewClient(0))
	require.NoError(t, err)
	events = s.Fetch(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, event.KindError, events[0].Kind)
}

type panicExtractor struct{}

func (panicExtractor) Extract(_ *goquery.Document) []*event.Event {
	panic("unexpected markup")
}

func TestSourceParse_RecoversExtractorPanic(t *testing.T) {
	s, err := New(catalogSource(t, "IFUSP"), NewClient(0))
	require.NoError(t, err)
	s.extractor = panicExtractor{}

	events, err := s.Parse(strings.NewReader("<html></html>"))
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Contains(t, err.Error(), "extracting events: unexpected markup")
}

func TestSourceParse(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "ift.html"))
	require.NoError(t, err)
	defer f.Close() // nolint:errcheck

	s, err := New(catalogSource(t, "IFT"), NewClient(0))
	require.NoError(t, err)

	events, err := s.Parse(f)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(config.Source{Name: "X", Kind: "feed"}, NewClient(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source X")
}

func TestFromCatalog(t *testing.T) {
	cat, err := config.Default()
	require.NoError(t, err)

	sources, err := FromCatalog(cat, NewClient(0), WithYear(2025))
	require.NoError(t, err)
	assert.Len(t, sources, len(cat.Sources))

	assert.Equal(t, "IFUSP", sources[0].Name())
	assert.Equal(t, "IFT", sources[2].Name())
	assert.Equal(t, "São Paulo (IFT-UNESP)", sources[2].Label())
}
