// Package calendar exports event listings as iCalendar (RFC 5545) files.
//
// Every event whose date parses as a canonical Portuguese date becomes an
// all-day VEVENT spanning the whole range. Sentinels, events with unparseable
// dates and dates that do not exist on the calendar are left out. Output uses
// CRLF line endings.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/pfrederiksen/fisica-eventos/internal/event"
)

const (
	ProductID = "-//fisica-eventos//fisica-eventos//PT"
	uidDomain = "fisica-eventos"
)

// Build returns a calendar named name holding the exportable events. now is
// used as DTSTAMP.
func Build(events []*event.Event, name string, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, evt := range events {
		if evt.IsSentinel() {
			continue
		}
		d, ok := event.ParseCanonical(evt.DateText)
		if !ok || !d.Valid() {
			continue
		}
		addEvent(cal, evt, d, now)
	}

	return cal
}

func addEvent(cal *ical.Calendar, evt *event.Event, d event.CanonicalDate, now time.Time) {
	ve := cal.AddEvent(fmt.Sprintf("%s@%s", evt.ID(), uidDomain))
	ve.SetDtStampTime(now.UTC())
	ve.SetAllDayStartAt(d.Start())
	// DTEND is exclusive for all-day events.
	ve.SetAllDayEndAt(d.End().AddDate(0, 0, 1))
	ve.SetSummary(evt.Title)
	ve.SetDescription(description(evt))
	if evt.Location != "" {
		ve.SetLocation(evt.Location)
	}
	if evt.Link != "" {
		ve.SetURL(evt.Link)
	}
	ve.SetStatus(ical.ObjectStatusConfirmed)
}

func description(evt *event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data: %s", evt.DateText)
	if evt.Location != "" {
		fmt.Fprintf(&b, "\nLocal: %s", evt.Location)
	}
	if evt.Link != "" {
		fmt.Fprintf(&b, "\nMais informações: %s", evt.Link)
	}
	return b.String()
}

// Write serializes the calendar for events to w.
func Write(w io.Writer, events []*event.Event, name string, now time.Time) error {
	if err := Build(events, name, now).SerializeTo(w, ical.WithNewLineWindows); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

// GenerateICS returns the calendar for events as a string.
func GenerateICS(events []*event.Event, name string, now time.Time) string {
	return Build(events, name, now).Serialize(ical.WithNewLineWindows)
}
