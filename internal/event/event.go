package event

import (
	"crypto/sha1"
	"fmt"
)

// Kind tells real events apart from placeholder records.
type Kind string

const (
	KindEvent     Kind = "event"
	KindEmpty     Kind = "empty"      // source answered but yielded nothing
	KindError     Kind = "error"      // fetch or parse failure
	KindNoResults Kind = "no_results" // pipeline produced nothing
)

// Event represents a physics event scraped from an institution's page.
// The same record is used from extraction (no Location yet) to display
// (DateText already in canonical form).
type Event struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	DateText string `json:"date"`
	Link     string `json:"link"`
	Source   string `json:"source,omitempty"`
	Kind     Kind   `json:"kind"`
}

// New creates a raw event as emitted by an extractor.
func New(source, title, dateText, link string) *Event {
	return &Event{
		Title:    title,
		DateText: dateText,
		Link:     link,
		Source:   source,
		Kind:     KindEvent,
	}
}

// Sentinel creates a placeholder event carrying a diagnostic message in its
// title. Date and link are always empty.
func Sentinel(kind Kind, source, message string) *Event {
	return &Event{
		Title:  message,
		Source: source,
		Kind:   kind,
	}
}

// IsSentinel reports whether the event is a placeholder.
func (e *Event) IsSentinel() bool {
	return e.Kind != KindEvent && e.Kind != ""
}

// WithLocation returns a copy of the event tagged with a location label.
func (e *Event) WithLocation(label string) *Event {
	c := *e
	c.Location = label
	return &c
}

// WithDate returns a copy of the event with its date text replaced.
func (e *Event) WithDate(dateText string) *Event {
	c := *e
	c.DateText = dateText
	return &c
}

// Key is the deduplication key: exact title and date text.
func (e *Event) Key() string {
	return e.Title + "\x00" + e.DateText
}

// ID creates a deterministic identifier from location, title and date.
func (e *Event) ID() string {
	return GenerateID(e.Location, e.Title, e.DateText)
}

// GenerateID hashes the given fields into a stable hex identifier.
func GenerateID(location, title, dateText string) string {
	h := sha1.New()
	h.Write([]byte(location + "|" + title + "|" + dateText))
	return fmt.Sprintf("%x", h.Sum(nil))
}
