// Package filter provides the event filters applied by the listing pipeline.
//
// A Filter combines two date checks, both delegated to the event package's
// normalizer:
//   - Upcoming: the date mentions the target year and is not before today
//     (ambiguous dates are kept)
//   - Span: the date describes a multi-day range; bare single dates are dropped
//
// Dedupe removes repeated (title, date) pairs keeping the first occurrence.
//
// Example usage:
//
//	f := filter.New(2025, time.Now())
//	kept := filter.Dedupe(f.Apply(events))
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/fisica-eventos/internal/event"
)

// Filter represents the date criteria an event must meet to be listed.
type Filter struct {
	// Year must appear in the date text.
	Year int `json:"year"`

	// Today is the cutoff for past events; only its date part is used.
	Today time.Time `json:"today"`

	// RequireSpan drops events whose date is not a day range.
	RequireSpan bool `json:"require_span"`
}

// New creates the filter used for listings: upcoming events of year whose
// date is a span.
func New(year int, today time.Time) *Filter {
	return &Filter{
		Year:        year,
		Today:       today,
		RequireSpan: true,
	}
}

// Upcoming reports whether the event's date is in Year and not in the past.
func (f *Filter) Upcoming(evt *event.Event) bool {
	return event.IsFutureOrCurrentYear(evt.DateText, f.Year, f.Today)
}

// Span reports whether the event's date is a day range.
func (f *Filter) Span(evt *event.Event) bool {
	return event.HasDateSpan(evt.DateText)
}

// Matches checks if an event passes every active criterion.
func (f *Filter) Matches(evt *event.Event) bool {
	if !f.Upcoming(evt) {
		return false
	}
	if f.RequireSpan && !f.Span(evt) {
		return false
	}
	return true
}

// Apply returns the events that match, preserving order. The input slice is
// not modified.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria.
// Format: "Year: 2025 | From: 2025-06-01 | Ranges only"
func (f *Filter) String() string {
	parts := []string{
		fmt.Sprintf("Year: %d", f.Year),
		fmt.Sprintf("From: %s", f.Today.Format("2006-01-02")),
	}
	if f.RequireSpan {
		parts = append(parts, "Ranges only")
	}
	return strings.Join(parts, " | ")
}

// Dedupe drops events whose exact (title, date) pair was already seen.
// The first occurrence wins and order is preserved.
func Dedupe(events []*event.Event) []*event.Event {
	seen := make(map[string]bool, len(events))
	unique := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		key := evt.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, evt)
	}
	return unique
}
