package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/google/uuid"
)

// ChartSpec describes a chart to render.
type ChartSpec struct {
	Type   string        `json:"type"`
	Title  string        `json:"title"`
	XLabel string        `json:"x_label"`
	YLabel string        `json:"y_label"`
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
	Notes  string        `json:"notes"`
}

// ChartSeries is one named line, or the values of a bar or pie chart.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Validate reports specs that cannot be drawn.
func (s ChartSpec) Validate() error {
	if len(s.Labels) == 0 {
		return errors.New("chart has no labels")
	}
	if len(s.Series) == 0 {
		return errors.New("chart has no series")
	}
	for _, ser := range s.Series {
		if len(ser.Values) != len(s.Labels) {
			return fmt.Errorf("series %q has %d values for %d labels", ser.Name, len(ser.Values), len(s.Labels))
		}
	}

	switch s.Type {
	case "line":
		if len(s.Labels) < 2 {
			return errors.New("line chart needs at least two labels")
		}
	case "bar":
		if len(s.Series) != 1 {
			return fmt.Errorf("bar chart takes one series, got %d", len(s.Series))
		}
	case "pie":
		if len(s.Series) != 1 {
			return fmt.Errorf("pie chart takes one series, got %d", len(s.Series))
		}
		for i, v := range s.Series[0].Values {
			if v <= 0 {
				return fmt.Errorf("pie slice %q must be positive, got %g", s.Labels[i], v)
			}
		}
	default:
		return fmt.Errorf("unsupported chart type %q", s.Type)
	}
	return nil
}

// Chart renders gathered data as an SVG file.
type Chart struct {
	model  llm.Completer
	dir    string
	newID  func() string
	logger *slog.Logger
}

// NewChart creates the chart worker writing files under dir.
func NewChart(model llm.Completer, dir string, opts ...Option) *Chart {
	c := newConfig(opts)
	return &Chart{
		model:  model,
		dir:    dir,
		newID:  uuid.NewString,
		logger: c.logger.With("worker", domain.WorkerChart),
	}
}

var _ ports.Worker = (*Chart)(nil)

type chartPromptData struct {
	Instruction string
	Findings    []domain.Message
}

// Execute asks the model for a chart spec and renders it.
func (c *Chart) Execute(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
	reply, err := ask(ctx, c.model, "chart.tmpl", chartPromptData{
		Instruction: req.Instruction,
		Findings:    findings(req.Context),
	}, true)
	if err != nil {
		return ports.WorkerResult{}, fmt.Errorf("chart completion: %w", err)
	}
	raw, err := llm.ExtractObject(reply)
	if err != nil {
		return ports.WorkerResult{}, fmt.Errorf("chart completion: %w", err)
	}
	var spec ChartSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return ports.WorkerResult{}, fmt.Errorf("decode chart spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return ports.WorkerResult{}, err
	}

	path, err := c.write(spec)
	if err != nil {
		return ports.WorkerResult{}, err
	}
	c.logger.Info("chart rendered", "path", path, "type", spec.Type)

	artifact := domain.ChartArtifact{Path: path, Notes: spec.Notes}
	summary := fmt.Sprintf("Rendered %s chart %q with %d series over %d labels.", spec.Type, spec.Title, len(spec.Series), len(spec.Labels))
	return ports.WorkerResult{
		Messages: []domain.Message{{Content: summary + "\n" + domain.FormatChartMarkers(artifact)}},
		Chart:    &artifact,
	}, nil
}

func (c *Chart) write(spec ChartSpec) (string, error) {
	svg, err := RenderSVG(spec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}
	path := filepath.Join(c.dir, "chart-"+c.newID()+".svg")
	if err := os.WriteFile(path, svg, 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart: %w", err)
	}
	return path, nil
}
