// Package event provides the event record and the date normalizer used to
// compare and display event dates.
//
// Source pages publish dates in Portuguese ("10 a 12 de março de 2025") and in
// English ("March 10–12, 2025"). The normalizer recognizes single dates,
// same-month ranges and cross-month ranges, renders them in one canonical
// Portuguese phrasing and derives a sortable calendar date. Parsing is
// fail-open: ambiguous text is kept, sorted last or passed through unchanged.
package event
