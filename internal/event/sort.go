package event

import (
	"sort"
	"time"
)

// SortByDate sorts events in place by ToComparableDate of their DateText.
// Events with equal keys, including all unparseable ones, keep their order.
func SortByDate(events []*Event) {
	type keyed struct {
		evt *Event
		at  time.Time
	}

	items := make([]keyed, len(events))
	for i, evt := range events {
		items[i] = keyed{evt: evt, at: ToComparableDate(evt.DateText)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.Before(items[j].at)
	})

	for i := range items {
		events[i] = items[i].evt
	}
}
