package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
	"github.com/pfrederiksen/fisica-eventos/internal/logger"
	"github.com/pfrederiksen/fisica-eventos/internal/metrics"
	"github.com/pfrederiksen/fisica-eventos/internal/pipeline"
	"github.com/pfrederiksen/fisica-eventos/internal/region"
	"github.com/pfrederiksen/fisica-eventos/internal/scraper"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// EnvPrefix prefixes the environment variables read by Viper.
const EnvPrefix = "FISICA_EVENTOS"

// Viper keys of the global flags.
const (
	keyConfig    = "config"
	keyYear      = "year"
	keyTimeout   = "timeout"
	keyUserAgent = "user-agent"
	keyLogLevel  = "log-level"
	keyVerbose   = "verbose"
)

// Settings is the resolved global configuration of a command.
type Settings struct {
	ConfigPath string
	Year       int
	Timeout    time.Duration
	UserAgent  string
	LogLevel   logger.Level
	Verbose    bool
}

// app carries what the subcommands share.
type app struct {
	v   *viper.Viper
	out io.Writer
	err io.Writer
	// now is replaced in tests.
	now func() time.Time
}

// NewRootCmd creates the root command with all subcommands attached. Each
// call has its own Viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{
		v:   viper.New(),
		out: os.Stdout,
		err: os.Stderr,
		now: time.Now,
	}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fisica-eventos",
		Short: "Find physics events at Brazilian universities",
		Long: `A tool that scrapes the event pages of Brazilian physics departments
and lists the upcoming events of a region, on the terminal or on a web page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.err = cmd.ErrOrStderr()
			if err := a.bindFlags(cmd.Root()); err != nil {
				return err
			}
			return a.setupLogging()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(keyConfig, "", "Source catalogue YAML file (default: built-in catalogue)")
	flags.Int(keyYear, pipeline.DefaultYear, "Target year of the events")
	flags.Duration(keyTimeout, scraper.Timeout, "Timeout of each source fetch")
	flags.String(keyUserAgent, scraper.UserAgent, "User-Agent sent to the sources")
	flags.String(keyLogLevel, "warn", "Log level: debug, info, warn or error")
	flags.BoolP(keyVerbose, "v", false, "Enable verbose logging (same as --log-level debug)")

	a.initConfig()

	cmd.AddCommand(a.searchCmd(), a.serveCmd(), a.regionsCmd())
	return cmd
}

// initConfig makes FISICA_EVENTOS_<FLAG> override a flag default, with
// dashes in the flag name read as underscores.
func (a *app) initConfig() {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
}

// bindFlags binds the global flags into Viper. A flag given on the command
// line wins over the environment.
func (a *app) bindFlags(root *cobra.Command) error {
	if err := a.v.BindPFlags(root.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// settings resolves the global configuration.
func (a *app) settings() (Settings, error) {
	s := Settings{
		ConfigPath: a.v.GetString(keyConfig),
		Year:       a.v.GetInt(keyYear),
		Timeout:    a.v.GetDuration(keyTimeout),
		UserAgent:  a.v.GetString(keyUserAgent),
		Verbose:    a.v.GetBool(keyVerbose),
	}

	level, err := logger.ParseLevel(a.v.GetString(keyLogLevel))
	if err != nil {
		return s, err
	}
	s.LogLevel = level
	if s.Verbose {
		s.LogLevel = logger.LevelDebug
	}

	if s.Year <= 0 {
		return s, fmt.Errorf("invalid year: %d", s.Year)
	}
	if s.Timeout <= 0 {
		return s, fmt.Errorf("invalid timeout: %s", s.Timeout)
	}
	return s, nil
}

func (a *app) setupLogging() error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	logger.SetDefault(logger.New(s.LogLevel, a.err))
	return nil
}

// newPipeline wires catalogue, region table, scraper sources and metrics
// into a pipeline.
func (a *app) newPipeline(reg prometheus.Registerer) (*pipeline.Pipeline, *metrics.Metrics, error) {
	s, err := a.settings()
	if err != nil {
		return nil, nil, err
	}

	cat, err := config.Load(s.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalogue: %w", err)
	}

	client := scraper.NewClient(s.Timeout, scraper.WithUserAgent(s.UserAgent))
	sources, err := scraper.FromCatalog(cat, client,
		scraper.WithYear(s.Year),
		scraper.WithTimeout(s.Timeout),
		scraper.WithLogger(logger.Default()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating sources: %w", err)
	}

	fetchers := make([]pipeline.Fetcher, len(sources))
	for i, src := range sources {
		fetchers[i] = src
	}

	m := metrics.New(reg)
	p := pipeline.New(region.New(cat), fetchers,
		pipeline.WithYear(s.Year),
		pipeline.WithClock(a.now),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger.Default()),
	)

	logger.Debug("pipeline ready", logger.Fields{
		"year":    s.Year,
		"sources": len(sources),
		"timeout": s.Timeout.String(),
		"catalog": catalogName(s.ConfigPath),
	})
	return p, m, nil
}

func catalogName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

// Execute runs the CLI
func Execute() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = logger.Default().Sync()
		os.Exit(ExitError)
	}
	_ = logger.Default().Sync()
}
