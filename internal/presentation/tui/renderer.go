package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a glamour renderer wrapping at width columns.
// A width of zero keeps glamour's default.
func NewRenderer(width int) (Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// Plain returns markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}

// Answer formats a run outcome as markdown: the answer, then the chart
// and the plan that produced it.
func Answer(answer string, chart *domain.ChartArtifact, plan domain.Plan) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(answer))
	b.WriteString("\n")

	if chart != nil {
		b.WriteString("\n---\n\n**Chart:** `")
		b.WriteString(chart.Path)
		b.WriteString("`\n")
		if chart.Notes != "" {
			b.WriteString("\n> ")
			b.WriteString(chart.Notes)
			b.WriteString("\n")
		}
	}

	if len(plan) > 0 {
		b.WriteString("\n---\n\n**Plan**\n\n")
		for i, spec := range plan.Steps() {
			fmt.Fprintf(&b, "%d. `%s` %s\n", i+1, spec.Worker, spec.Action)
		}
	}
	return b.String()
}
