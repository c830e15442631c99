package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
)

type analyzeOptions struct {
	query       string
	sources     []string
	limit       int
	channel     string
	subreddit   string
	storyboards bool
	provider    string
	outDir      string
	format      string
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [query]",
		Short: "Scrape, analyze and write a report in one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.query = args[0]
			}
			switch opts.format {
			case "html", "markdown", "both":
			default:
				return fmt.Errorf("invalid --format %q (want html, markdown or both)", opts.format)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			req, err := opts.request()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			errOut := cmd.ErrOrStderr()
			interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
			report, err := a.pipeline.Run(cmd.Context(), req, func(p domain.Progress) {
				if !interactive {
					logger.Debug("progress",
						zap.String("stage", p.Stage),
						zap.Int("processed", p.Processed),
						zap.Int("total", p.Total))
					return
				}
				if p.Total > 0 {
					fmt.Fprintf(errOut, "[%s] %d/%d %s\n", p.Stage, p.Processed, p.Total, p.Message)
					return
				}
				fmt.Fprintf(errOut, "[%s] %s\n", p.Stage, p.Message)
			})
			if err != nil {
				return err
			}

			paths, err := writeReportFiles(a, report, opts.outDir, opts.format)
			if err != nil {
				return err
			}
			logger.Debug("report written", zap.String("report_id", report.ID), zap.Strings("files", paths))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderReportSummary(report))
			for _, p := range paths {
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.query, "query", "q", "", "Search query")
	flags.StringSliceVarP(&opts.sources, "source", "s", nil, "Sources to scrape (youtube, reddit)")
	flags.IntVarP(&opts.limit, "limit", "n", 0, "Items per source")
	flags.StringVar(&opts.channel, "channel", "", "Restrict YouTube results to a channel")
	flags.StringVar(&opts.subreddit, "subreddit", "", "Restrict Reddit results to a subreddit")
	flags.BoolVar(&opts.storyboards, "storyboards", false, "Generate a storyboard for every analyzed item")
	flags.StringVarP(&opts.provider, "provider", "p", "", "Use only this provider")
	flags.StringVarP(&opts.outDir, "out", "o", ".", "Directory for report files")
	flags.StringVar(&opts.format, "format", "both", "Report format: html, markdown or both")

	return cmd
}

func (o analyzeOptions) request() (domain.RunRequest, error) {
	req := domain.RunRequest{
		Query:       o.query,
		Limit:       o.limit,
		Channel:     o.channel,
		Subreddit:   o.subreddit,
		Storyboards: o.storyboards,
	}
	for _, s := range o.sources {
		req.Sources = append(req.Sources, domain.Source(s))
	}
	if o.provider != "" {
		name, err := domain.ParseProviderName(o.provider)
		if err != nil {
			return req, err
		}
		req.Provider = name
	}
	return req, nil
}

func writeReportFiles(a *app, report *domain.Report, dir, format string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	base := filepath.Join(dir, "report-"+report.ID)

	if format == "html" || format == "both" {
		page, err := a.renderer.HTML(report)
		if err != nil {
			return nil, err
		}
		path := base + ".html"
		if err := os.WriteFile(path, page, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	if format == "markdown" || format == "both" {
		md, err := a.renderer.Markdown(report)
		if err != nil {
			return nil, err
		}
		path := base + ".md"
		if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func renderReportSummary(report *domain.Report) string {
	rows := [][]string{
		{"Report", report.ID},
		{"Query", report.Query},
		{"Items", strconv.Itoa(len(report.Items))},
		{"Analyses", strconv.Itoa(len(report.Analyses))},
		{"Storyboards", strconv.Itoa(len(report.Storyboards))},
		{"Errors", strconv.Itoa(len(report.Errors))},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}
