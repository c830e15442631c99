// Package report renders persisted pipeline reports as HTML or Markdown.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"slices"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/aescanero/ytscope/pkg/domain"
)

//go:embed report.html.tmpl
var reportTemplate string

// Renderer turns reports into documents
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded template
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type providerRow struct {
	Name        domain.ProviderName
	Status      domain.HealthState
	Requests    int64
	SuccessRate string
	AvgResponse string
}

type itemView struct {
	*domain.ContentItem
	Analysis   *domain.Analysis
	Storyboard *domain.Storyboard
}

type reportView struct {
	Query       string
	Sources     string
	GeneratedAt string
	Summary     string
	Providers   []providerRow
	Items       []itemView
	Errors      []domain.ItemError
}

func newView(r *domain.Report) reportView {
	sources := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = string(s)
	}

	v := reportView{
		Query:       r.Query,
		Sources:     strings.Join(sources, ", "),
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC1123),
		Summary:     r.Summary,
		Errors:      r.Errors,
	}

	names := make([]domain.ProviderName, 0, len(r.Stats))
	for name := range r.Stats {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		s := r.Stats[name]
		v.Providers = append(v.Providers, providerRow{
			Name:        name,
			Status:      r.Health[name].Status,
			Requests:    s.Requests,
			SuccessRate: fmt.Sprintf("%.0f%%", s.SuccessRate()*100),
			AvgResponse: s.AvgResponseTime.Round(time.Millisecond).String(),
		})
	}

	for _, item := range r.Items {
		v.Items = append(v.Items, itemView{
			ContentItem: item,
			Analysis:    r.Analyses[item.ID],
			Storyboard:  r.Storyboards[item.ID],
		})
	}
	return v
}

// HTML renders the report as a standalone HTML page
func (r *Renderer) HTML(report *domain.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report is nil")
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, newView(report)); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Markdown renders the HTML page and converts it
func (r *Renderer) Markdown(report *domain.Report) (string, error) {
	page, err := r.HTML(report)
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(string(page))
	if err != nil {
		return "", fmt.Errorf("failed to convert report to markdown: %w", err)
	}
	return md, nil
}
