package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/fisica-eventos/internal/calendar"
	"github.com/pfrederiksen/fisica-eventos/internal/pipeline"
	"github.com/pfrederiksen/fisica-eventos/internal/region"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case FormatText, FormatJSON, FormatICS:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", s)
	}
}

// OutputResult is the JSON shape of a search.
type OutputResult struct {
	*pipeline.Result
	Found      bool `json:"found"`
	EventCount int  `json:"event_count"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, res *pipeline.Result, format OutputFormat, verbose bool, now time.Time) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatText:
		return writeText(w, res, verbose)
	case FormatICS:
		name := fmt.Sprintf("Eventos de Física %d - %s", res.Year, res.Query)
		return calendar.Write(w, res.Events, name, now)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, res *pipeline.Result) error {
	out := OutputResult{Result: res, Found: res.Found()}
	if out.Found {
		out.EventCount = len(res.Events)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeText prints one block per event. Sources that yielded nothing are
// listed only when verbose.
func writeText(w io.Writer, res *pipeline.Result, verbose bool) error {
	fmt.Fprintf(w, "Resultados para %q em %d\n\n", res.Query, res.Year)

	if !res.Found() {
		for _, evt := range res.Events {
			fmt.Fprintln(w, evt.Title)
		}
	} else {
		for _, evt := range res.Events {
			fmt.Fprintln(w, evt.Location)
			fmt.Fprintf(w, "  📌 %s\n", evt.Title)
			fmt.Fprintf(w, "  🗓️ %s\n", evt.DateText)
			if evt.Link != "" {
				fmt.Fprintf(w, "  🔗 %s\n", evt.Link)
			}
			fmt.Fprintln(w)
		}
		label := "eventos"
		if len(res.Events) == 1 {
			label = "evento"
		}
		fmt.Fprintf(w, "Total: %d %s\n", len(res.Events), label)
	}

	if verbose && len(res.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nFontes sem resultados (%d):\n", len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			fmt.Fprintf(w, "  %s: %s\n", d.Location, d.Title)
		}
	}

	return nil
}

// WriteRegions lists the region table.
func WriteRegions(w io.Writer, regions []region.Region, wildcard string, format OutputFormat) error {
	if format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Wildcard string          `json:"wildcard"`
			Regions  []region.Region `json:"regions"`
		}{wildcard, regions})
	}

	for _, r := range regions {
		fmt.Fprintf(w, "%s\n", r.Name)
		fmt.Fprintf(w, "  aliases: %s\n", strings.Join(r.Aliases, ", "))
		fmt.Fprintf(w, "  fontes:  %s\n", strings.Join(r.Sources, ", "))
	}
	fmt.Fprintf(w, "\nUse %q para buscar em todas as regiões.\n", wildcard)
	return nil
}
