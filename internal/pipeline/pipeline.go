// Package pipeline turns a region query into the list of events shown to the
// user.
//
// A run looks the query up in the region table, fetches every matched source
// in order, keeps upcoming events of the target year whose date is a range,
// removes duplicates, rewrites dates in canonical form and sorts them
// chronologically. Sources report failures as sentinel events, so a run
// always completes; the sentinels are also collected as diagnostics.
package pipeline

import (
	"context"
	"time"

	"github.com/pfrederiksen/fisica-eventos/internal/event"
	"github.com/pfrederiksen/fisica-eventos/internal/filter"
	"github.com/pfrederiksen/fisica-eventos/internal/logger"
	"github.com/pfrederiksen/fisica-eventos/internal/metrics"
	"github.com/pfrederiksen/fisica-eventos/internal/region"
)

// Messages of the no-results sentinel.
const (
	MsgUnknownRegion = "Nenhuma cidade reconhecida."
	MsgNoEvents      = "Nenhum evento encontrado."
)

// DefaultYear is the target year unless WithYear is given.
const DefaultYear = 2025

// Fetcher is one event source. Fetch never fails: problems are reported as
// sentinel events.
type Fetcher interface {
	Name() string
	Label() string
	Fetch(ctx context.Context) []*event.Event
}

// Result is the outcome of one run.
type Result struct {
	Query   string          `json:"query"`
	Year    int             `json:"year"`
	Regions []region.Region `json:"regions"`
	// Events holds display events, or a single no_results sentinel.
	Events []*event.Event `json:"events"`
	// Diagnostics holds the empty and error sentinels reported by sources.
	Diagnostics []*event.Event `json:"diagnostics,omitempty"`
	// Generated is when the run started.
	Generated time.Time `json:"generated"`
}

// Found reports whether the run produced at least one real event.
func (r *Result) Found() bool {
	return len(r.Events) > 0 && !r.Events[0].IsSentinel()
}

// Pipeline holds what every run shares. It keeps no state between runs and
// is safe for concurrent use when its fetchers are.
type Pipeline struct {
	table   *region.Table
	sources map[string]Fetcher
	year    int
	now     func() time.Time
	metrics *metrics.Metrics
	log     *logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithYear sets the target year.
func WithYear(year int) Option {
	return func(p *Pipeline) {
		if year > 0 {
			p.year = year
		}
	}
}

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMetrics records fetch and query metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a pipeline over a region table and the sources it names.
func New(table *region.Table, sources []Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		table:   table,
		sources: make(map[string]Fetcher, len(sources)),
		year:    DefaultYear,
		now:     time.Now,
		log:     logger.Default(),
	}
	for _, s := range sources {
		p.sources[s.Name()] = s
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Year returns the target year.
func (p *Pipeline) Year() int {
	return p.year
}

// Regions returns the region table entries in order.
func (p *Pipeline) Regions() []region.Region {
	return p.table.Regions()
}

// Wildcard returns the query that selects every region.
func (p *Pipeline) Wildcard() string {
	return p.table.Wildcard()
}

// ListEvents returns the display events for query, or a single sentinel
// when there are none.
func (p *Pipeline) ListEvents(ctx context.Context, query string) []*event.Event {
	return p.Run(ctx, query).Events
}

// Run executes the whole pipeline for query.
func (p *Pipeline) Run(ctx context.Context, query string) *Result {
	started := p.now()
	res := &Result{
		Query:     query,
		Year:      p.year,
		Generated: started,
	}

	regions, ok := p.table.Lookup(query)
	if !ok {
		res.Events = []*event.Event{event.Sentinel(event.KindNoResults, "", MsgUnknownRegion)}
		p.metrics.ObserveQuery(metrics.OutcomeUnknownRegion, 0)
		p.log.Info("unknown region", logger.Fields{"query": query})
		return res
	}
	res.Regions = regions

	var collected []*event.Event
	for _, r := range regions {
		for _, name := range r.Sources {
			events := p.fetch(ctx, name)
			for _, evt := range events {
				if evt.IsSentinel() {
					res.Diagnostics = append(res.Diagnostics, evt)
				}
			}
			collected = append(collected, events...)
		}
	}

	f := filter.New(p.year, started)
	kept := filter.Dedupe(f.Apply(collected))

	display := make([]*event.Event, len(kept))
	for i, evt := range kept {
		display[i] = evt.WithDate(event.FormatCanonical(evt.DateText))
	}
	event.SortByDate(display)

	if len(display) == 0 {
		res.Events = []*event.Event{event.Sentinel(event.KindNoResults, "", MsgNoEvents)}
		p.metrics.ObserveQuery(metrics.OutcomeNoEvents, 0)
	} else {
		res.Events = display
		p.metrics.ObserveQuery(metrics.OutcomeEvents, len(display))
	}

	p.log.Info("query completed", logger.Fields{
		"query":       query,
		"regions":     len(regions),
		"collected":   len(collected),
		"events":      len(kept),
		"diagnostics": len(res.Diagnostics),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return res
}

// fetch runs one source and tags its events with the source's label.
func (p *Pipeline) fetch(ctx context.Context, name string) []*event.Event {
	src, ok := p.sources[name]
	if !ok {
		p.log.Warn("source not configured", logger.Fields{"source": name})
		return []*event.Event{event.Sentinel(event.KindError, name,
			"[ERRO - "+name+"] fonte não configurada")}
	}

	start := time.Now()
	events := src.Fetch(ctx)
	p.metrics.ObserveFetch(name, fetchStatus(events), time.Since(start))

	located := make([]*event.Event, len(events))
	for i, evt := range events {
		located[i] = evt.WithLocation(src.Label())
	}
	return located
}

func fetchStatus(events []*event.Event) string {
	if len(events) == 1 {
		switch events[0].Kind {
		case event.KindError:
			return metrics.StatusError
		case event.KindEmpty:
			return metrics.StatusEmpty
		}
	}
	if len(events) == 0 {
		return metrics.StatusEmpty
	}
	return metrics.StatusOK
}
