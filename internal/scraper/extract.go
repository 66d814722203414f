package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
	"github.com/pfrederiksen/fisica-eventos/internal/event"
)

// Extractor turns a parsed page into raw events. Extractors only read the
// document; they never fetch.
type Extractor interface {
	Extract(doc *goquery.Document) []*event.Event
}

// NewExtractor returns the extractor for the source's kind.
func NewExtractor(src config.Source, year int) (Extractor, error) {
	base := extractor{src: src, year: strconv.Itoa(year)}
	switch src.Kind {
	case config.KindListing:
		return &listingExtractor{base}, nil
	case config.KindEmbed:
		return &embedExtractor{base}, nil
	case config.KindTribe:
		return &tribeExtractor{base}, nil
	case config.KindGeneric:
		return &genericExtractor{base}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

type extractor struct {
	src  config.Source
	year string
}

func (x extractor) hasYear(texts ...string) bool {
	for _, t := range texts {
		if strings.Contains(t, x.year) {
			return true
		}
	}
	return false
}

// link resolves href against the source's base URL, falling back to the
// listing page when href is empty or unusable.
func (x extractor) link(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return x.src.URL
	}
	base, err := url.Parse(x.src.BaseURL)
	if err != nil {
		return x.src.URL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return x.src.URL
	}
	return base.ResolveReference(ref).String()
}

// listingExtractor reads pages where every event is a block with separate
// title, date and link elements.
type listingExtractor struct{ extractor }

func (x *listingExtractor) Extract(doc *goquery.Document) []*event.Event {
	sel := x.src.Selectors
	var events []*event.Event

	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		titleTag := item.Find(sel.Title).First()
		dateTag := item.Find(sel.Date).First()
		if titleTag.Length() == 0 || dateTag.Length() == 0 {
			return
		}

		title := collapse(titleTag.Text())
		date := capitalize(collapse(dateTag.Text()))
		if title == "" {
			return
		}

		var href string
		if sel.Link != "" {
			href = item.Find(sel.Link).First().AttrOr("href", "")
		}
		if href == "" {
			href = titleTag.AttrOr("href", "")
		}

		if !x.hasYear(date, title) {
			return
		}
		events = append(events, event.New(x.src.Name, title, date, x.link(href)))
	})

	return events
}

// monthSpanLine matches heading lines such as "may – june, 2025" that name
// months without days.
var monthSpanLine = regexp.MustCompile(`^\s*[a-z]+\s*[-–]\s*[a-z]+\s*,?\s*\d{4}\s*$`)

// embedExtractor reads activity lists where each paragraph holds a linked
// title followed by an English date on the next line.
type embedExtractor struct{ extractor }

func (x *embedExtractor) Extract(doc *goquery.Document) []*event.Event {
	sel := x.src.Selectors
	var events []*event.Event

	doc.Find(sel.Item).Each(func(_ int, p *goquery.Selection) {
		a := p.Find(sel.Link).First()
		lines := textLines(p)
		if a.Length() == 0 || len(lines) < 2 {
			return
		}

		title := collapse(a.Text())
		dateEN := lines[1]
		if title == "" || monthSpanLine.MatchString(strings.ToLower(dateEN)) {
			return
		}

		date := event.TranslateDate(dateEN)
		if !x.hasYear(date, title) {
			return
		}
		events = append(events, event.New(x.src.Name, title, date, x.link(a.AttrOr("href", ""))))
	})

	return events
}

var (
	dayMonth      = regexp.MustCompile(`(\d{1,2}) de ([a-zç]+)`)
	yearFromTitle = regexp.MustCompile(`\d{2}/\d{2}/(\d{4})`)
)

// tribeExtractor reads The Events Calendar list views, where start and end
// are separate elements that omit the year.
type tribeExtractor struct{ extractor }

func (x *tribeExtractor) Extract(doc *goquery.Document) []*event.Event {
	sel := x.src.Selectors
	var events []*event.Event

	doc.Find(sel.Item).Each(func(_ int, block *goquery.Selection) {
		a := block.Find(sel.Title).First()
		start := block.Find(sel.Date).First()
		if a.Length() == 0 || start.Length() == 0 {
			return
		}

		title := collapse(a.Text())
		dayStart, monthStart := matchDayMonth(start.Text())
		if title == "" || dayStart == "" {
			return
		}

		var dayEnd, monthEnd string
		if sel.EndDate != "" {
			dayEnd, monthEnd = matchDayMonth(block.Find(sel.EndDate).First().Text())
		}

		year := x.year
		if m := yearFromTitle.FindStringSubmatch(a.AttrOr("title", "")); m != nil {
			year = m[1]
		}

		var date string
		switch {
		case dayEnd != "" && monthEnd == monthStart:
			date = fmt.Sprintf("%s–%s de %s de %s", dayStart, dayEnd, monthStart, year)
		case dayEnd != "":
			date = fmt.Sprintf("%s de %s a %s de %s de %s", dayStart, monthStart, dayEnd, monthEnd, year)
		default:
			date = fmt.Sprintf("%s de %s de %s", dayStart, monthStart, year)
		}

		events = append(events, event.New(x.src.Name, title, date, x.link(a.AttrOr("href", ""))))
	})

	return events
}

func matchDayMonth(text string) (day, month string) {
	m := dayMonth.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

// genericExtractor scans every matching element for text that mentions the
// target year and one of the source's keywords.
type genericExtractor struct{ extractor }

func (x *genericExtractor) Extract(doc *goquery.Document) []*event.Event {
	keywords := make([]string, len(x.src.Keywords))
	for i, kw := range x.src.Keywords {
		keywords[i] = strings.ToLower(kw)
	}

	var events []*event.Event

	doc.Find(x.src.Selectors.Item).Each(func(_ int, tag *goquery.Selection) {
		text := collapse(tag.Text())
		if !x.hasYear(text) || !containsAny(strings.ToLower(text), keywords) {
			return
		}

		link := tag.AttrOr("href", "")
		if !strings.HasPrefix(link, "http") {
			link = x.src.URL
		}

		date := event.FindDateText(text)
		if date == "" {
			date = x.year
		}
		events = append(events, event.New(x.src.Name, text, date, link))
	})

	return events
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// textLines returns the non-blank text nodes under sel, trimmed, in
// document order.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return lines
}

// collapse trims s and folds runs of whitespace, including non-breaking
// spaces, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
