package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/metrics"
	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/dgallion1/docsite/internal/render"
)

var version = "dev"

// CLI holds the global flags; they override the config file and environment.
type CLI struct {
	Config          string           `short:"c" help:"Configuration file (YAML or JSON)" type:"path"`
	EnvFile         string           `help:"Dotenv file with DOCSITE_* variables" default:".env" type:"path"`
	Source          string           `help:"Source pages directory" type:"path"`
	Templates       string           `help:"Templates directory" type:"path"`
	DefaultTemplate string           `help:"Template used when no page sets one"`
	Output          string           `short:"o" help:"Output directory" type:"path"`
	MissingParser   string           `help:"What to do with files no parser handles (skip or fail)"`
	Workers         int              `help:"Parse and render concurrency (0 = number of CPUs)" default:"-1"`
	Verbose         bool             `short:"v" help:"Enable debug logging"`
	Version         kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"1" help:"Build the site"`
	Pages PagesCmd `cmd:"" help:"List pages with their resolved template without writing anything"`

	cfg config.Config
	log *slog.Logger
}

// AfterApply loads the configuration and sets up logging once flags are parsed.
func (c *CLI) AfterApply() error {
	cfg, err := config.Load(c.Config, c.EnvFile)
	if err != nil {
		return err
	}
	c.applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg
	c.log = newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(c.log)
	return nil
}

func (c *CLI) applyFlags(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Source, c.Source)
	set(&cfg.Templates, c.Templates)
	set(&cfg.DefaultTemplate, c.DefaultTemplate)
	set(&cfg.Output, c.Output)
	set(&cfg.MissingParser, c.MissingParser)
	if c.Workers >= 0 {
		cfg.Workers = c.Workers
	}
	if c.Verbose {
		cfg.LogLevel = "debug"
	}
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// builder wires the registry, template store and metrics for one run.
func (c *CLI) builder() (*pipeline.Builder, error) {
	reg, err := c.cfg.Registry()
	if err != nil {
		return nil, err
	}
	store, err := render.NewStore(c.cfg.Templates)
	if err != nil {
		return nil, err
	}
	var rec metrics.Recorder
	if c.cfg.MetricsFile != "" {
		rec = metrics.NewPrometheusRecorder(nil)
	}
	return pipeline.NewBuilder(c.cfg, reg, store, c.log, rec), nil
}

type BuildCmd struct {
	Report      string `help:"Write a JSON build report to this file" type:"path"`
	MetricsFile string `help:"Write Prometheus metrics to this textfile" type:"path"`
}

// errFailedPages makes the process exit non-zero after failures were listed.
var errFailedPages = errors.New("one or more pages failed")

func (b *BuildCmd) Run(cli *CLI, ctx context.Context) error {
	if b.Report != "" {
		cli.cfg.ReportFile = b.Report
	}
	if b.MetricsFile != "" {
		cli.cfg.MetricsFile = b.MetricsFile
	}
	builder, err := cli.builder()
	if err != nil {
		return err
	}
	report, err := builder.Run(ctx)
	if err != nil {
		return err
	}

	failures := report.Failures()
	if len(failures) == 0 {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%d page(s) failed:\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Path, f.Error)
	}
	return errFailedPages
}

type PagesCmd struct{}

func (p *PagesCmd) Run(cli *CLI, ctx context.Context) error {
	builder, err := cli.builder()
	if err != nil {
		return err
	}
	plan, err := builder.Plan(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tOUTPUT\tTEMPLATE\tSTATUS")
	for _, e := range plan {
		tmpl := e.Template
		switch {
		case e.Output == "":
			tmpl = "-"
		case tmpl == "":
			tmpl = "(none)"
		case !e.TemplateFound:
			tmpl += " (missing)"
		}
		out := e.Output
		if out == "" {
			out = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Path, out, tmpl, e.Status)
	}
	return tw.Flush()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("docsite"),
		kong.Description("Build a static HTML site from a tree of source documents."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err := kctx.Run(cli); err != nil {
		if !errors.Is(err, errFailedPages) {
			slog.Error("build failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}
