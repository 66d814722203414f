package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pfrederiksen/fisica-eventos/internal/calendar"
	"github.com/pfrederiksen/fisica-eventos/internal/pipeline"
	"github.com/pfrederiksen/fisica-eventos/internal/region"
)

// Runner runs event queries. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, query string) *pipeline.Result
	Regions() []region.Region
	Wildcard() string
	Year() int
}

// Handler holds the HTTP handlers.
type Handler struct {
	runner Runner
	now    func() time.Time
}

// NewHandler creates the handlers over runner.
func NewHandler(runner Runner) *Handler {
	return &Handler{
		runner: runner,
		now:    time.Now,
	}
}

// displayQuery title-cases a query for headings. A Caser is not safe for
// concurrent use, so one is made per call.
func displayQuery(query string) string {
	return cases.Title(language.BrazilianPortuguese).String(query)
}

type indexPage struct {
	Year     int
	Query    string
	Title    string
	Wildcard string
	Regions  []region.Region
	Result   *pipeline.Result
}

// Index renders the search form and, when regiao is set, its results.
func (h *Handler) Index(c *gin.Context) {
	query := strings.TrimSpace(c.Query("regiao"))

	page := indexPage{
		Year:     h.runner.Year(),
		Query:    query,
		Title:    displayQuery(query),
		Wildcard: h.runner.Wildcard(),
		Regions:  h.runner.Regions(),
	}
	if query != "" {
		page.Result = h.runner.Run(c.Request.Context(), query)
	}

	c.HTML(http.StatusOK, "index.html", page)
}

type eventsResponse struct {
	*pipeline.Result
	HasEvents bool `json:"found"`
}

// ListEvents returns the result of a query as JSON.
func (h *Handler) ListEvents(c *gin.Context) {
	query, ok := requireQuery(c)
	if !ok {
		return
	}

	res := h.runner.Run(c.Request.Context(), query)
	c.JSON(http.StatusOK, eventsResponse{Result: res, HasEvents: res.Found()})
}

// ListRegions returns the region table.
func (h *Handler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"wildcard": h.runner.Wildcard(),
		"regions":  h.runner.Regions(),
	})
}

// Calendar returns the events of a query as an iCalendar file.
func (h *Handler) Calendar(c *gin.Context) {
	query, ok := requireQuery(c)
	if !ok {
		return
	}

	res := h.runner.Run(c.Request.Context(), query)
	name := fmt.Sprintf("Eventos de Física %d - %s", res.Year, displayQuery(query))

	var buf bytes.Buffer
	if err := calendar.Write(&buf, res.Events, name, h.now()); err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, calendarFilename(query)))
	c.Header("X-Events-Found", strconv.FormatBool(res.Found()))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// HealthCheck reports that the server is up.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"year":      h.runner.Year(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func requireQuery(c *gin.Context) (string, bool) {
	query := strings.TrimSpace(c.Query("regiao"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing query",
			"message": "informe o parâmetro regiao, por exemplo ?regiao=sp",
		})
		return "", false
	}
	return query, true
}

// calendarFilename turns a query into a safe file name such as
// "eventos-sao-paulo.ics".
func calendarFilename(query string) string {
	var parts []string
	for _, word := range strings.Fields(region.Normalize(query)) {
		var b strings.Builder
		for _, r := range word {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	if len(parts) == 0 {
		return "eventos.ics"
	}
	return "eventos-" + strings.Join(parts, "-") + ".ics"
}
