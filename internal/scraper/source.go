package scraper

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
	"github.com/pfrederiksen/fisica-eventos/internal/event"
	"github.com/pfrederiksen/fisica-eventos/internal/logger"
)

// DefaultYear is the year events are collected for unless WithYear is given.
const DefaultYear = 2025

// Source scrapes one institution's event page.
type Source struct {
	cfg       config.Source
	client    *Client
	extractor Extractor
	year      int
	timeout   time.Duration
	log       *logger.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithYear sets the year events must mention.
func WithYear(year int) Option {
	return func(s *Source) {
		if year > 0 {
			s.year = year
		}
	}
}

// WithTimeout bounds one Fetch call.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Source from its catalogue entry. It fails only for an
// unknown kind.
func New(cfg config.Source, client *Client, opts ...Option) (*Source, error) {
	s := &Source{
		cfg:     cfg,
		client:  client,
		year:    DefaultYear,
		timeout: Timeout,
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	x, err := NewExtractor(cfg, s.year)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
	}
	s.extractor = x
	return s, nil
}

// FromCatalog creates a Source for every catalogue entry, in catalogue order.
func FromCatalog(cat *config.Catalog, client *Client, opts ...Option) ([]*Source, error) {
	sources := make([]*Source, 0, len(cat.Sources))
	for _, cfg := range cat.Sources {
		s, err := New(cfg, client, opts...)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// Name returns the catalogue name, e.g. "IFUSP".
func (s *Source) Name() string { return s.cfg.Name }

// Label returns the location shown next to the source's events.
func (s *Source) Label() string { return s.cfg.Label }

// URL returns the listing page.
func (s *Source) URL() string { return s.cfg.URL }

// Fetch downloads the listing page and extracts its events. It always
// returns at least one event: on failure a single error sentinel, and when
// nothing matched a single empty sentinel.
func (s *Source) Fetch(ctx context.Context) []*event.Event {
	events, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("source failed", logger.Fields{
			"source": s.cfg.Name,
			"url":    s.cfg.URL,
			"error":  err.Error(),
		})
		return []*event.Event{s.errorSentinel(err)}
	}
	if len(events) == 0 {
		return []*event.Event{s.emptySentinel()}
	}

	s.log.Debug("source fetched", logger.Fields{
		"source": s.cfg.Name,
		"events": len(events),
	})
	return events
}

func (s *Source) fetch(ctx context.Context) ([]*event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.cfg.InsecureSkipVerify {
		s.log.Warn("TLS certificate verification disabled", logger.Fields{
			"source": s.cfg.Name,
			"url":    s.cfg.URL,
		})
	}

	doc, err := s.client.Document(ctx, s.cfg.URL, s.cfg.InsecureSkipVerify)
	if err != nil {
		return nil, err
	}
	return s.extract(doc)
}

// Parse extracts events from an already downloaded page.
func (s *Source) Parse(r io.Reader) ([]*event.Event, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return s.extract(doc)
}

// extract turns a panic in an extractor into an error so a page with an
// unexpected structure only affects its own source.
func (s *Source) extract(doc *goquery.Document) (events []*event.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events, err = nil, fmt.Errorf("extracting events: %v", r)
		}
	}()
	return s.extractor.Extract(doc), nil
}

func (s *Source) errorSentinel(err error) *event.Event {
	return event.Sentinel(event.KindError, s.cfg.Name,
		fmt.Sprintf("[ERRO - %s] %v", s.cfg.Name, err))
}

func (s *Source) emptySentinel() *event.Event {
	return event.Sentinel(event.KindEmpty, s.cfg.Name,
		fmt.Sprintf("Nenhum evento de %d encontrado no %s.", s.year, s.cfg.Name))
}
