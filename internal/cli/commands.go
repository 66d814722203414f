package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
	"github.com/pfrederiksen/fisica-eventos/internal/logger"
	"github.com/pfrederiksen/fisica-eventos/internal/region"
	"github.com/pfrederiksen/fisica-eventos/internal/web"
)

// DefaultListenAddr is where servir listens unless --listen is given.
const DefaultListenAddr = ":8080"

// searchCmd creates the buscar command.
func (a *app) searchCmd() *cobra.Command {
	var (
		flagRegion string
		flagFormat string
	)

	cmd := &cobra.Command{
		Use:     "buscar [regiao]",
		Aliases: []string{"search"},
		Short:   "List the upcoming physics events of a region",
		Long: `Scrape every source of the region and list its upcoming events of the
target year, sorted by date. The region is a city, a state or its abbreviation,
or the wildcard that selects every region.`,
		Example: `  fisica-eventos buscar sp
  fisica-eventos buscar "rio de janeiro" --format json
  fisica-eventos buscar todos --format ics > eventos.ics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(flagRegion)
			if len(args) > 0 {
				query = strings.TrimSpace(strings.Join(args, " "))
			}
			if query == "" {
				return errors.New("a region is required, e.g. fisica-eventos buscar sp")
			}

			format, err := ParseFormat(flagFormat)
			if err != nil {
				return err
			}

			p, _, err := a.newPipeline(prometheus.NewRegistry())
			if err != nil {
				return err
			}

			res := p.Run(cmd.Context(), query)

			if err := WriteOutput(a.out, res, format, a.v.GetBool(keyVerbose), a.now()); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagRegion, "regiao", "r", "", "Region to search, instead of the argument")
	cmd.Flags().StringVarP(&flagFormat, "format", "f", string(FormatText), "Output format: text, json or ics")

	return cmd
}

// serveCmd creates the servir command.
func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "servir",
		Aliases: []string{"serve"},
		Short:   "Start the web interface",
		Long: `Serve the search page, the JSON API, iCalendar downloads, a health check
and Prometheus metrics until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr := a.v.GetString("listen")

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			p, m, err := a.newPipeline(reg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("web interface enabled", logger.Fields{
				"addr":    addr,
				"year":    p.Year(),
				"regions": len(p.Regions()),
			})
			return web.Serve(ctx, addr, web.NewServer(web.NewHandler(p), m, reg))
		},
	}

	cmd.Flags().String("listen", DefaultListenAddr, "Address to listen on")
	// BindPFlag only fails on a nil flag.
	_ = a.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))

	return cmd
}

// regionsCmd creates the regioes command.
func (a *app) regionsCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:     "regioes",
		Aliases: []string{"regions"},
		Short:   "List the known regions, their aliases and sources",
		RunE: func(_ *cobra.Command, _ []string) error {
			format, err := ParseFormat(flagFormat)
			if err != nil {
				return err
			}
			if format == FormatICS {
				return fmt.Errorf("invalid format for regioes: %s (must be 'text' or 'json')", format)
			}

			cat, err := config.Load(a.v.GetString(keyConfig))
			if err != nil {
				return fmt.Errorf("loading catalogue: %w", err)
			}

			table := region.New(cat)
			return WriteRegions(a.out, table.Regions(), table.Wildcard(), format)
		},
	}

	cmd.Flags().StringVarP(&flagFormat, "format", "f", string(FormatText), "Output format: text or json")

	return cmd
}
