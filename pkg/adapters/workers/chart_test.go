package workers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const revenueSpec = `{"type":"bar","title":"Revenue 2024","x_label":"Month","y_label":"USD",
"labels":["Jan","Feb","Mar"],"series":[{"name":"revenue","values":[10,12.5,9]}],
"notes":"February was the strongest month."}`

func TestChart_Execute(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	model := newFakeModel("```json\n" + revenueSpec + "\n```")
	c := NewChart(model, dir)
	c.newID = func() string { return "fixed" }

	res, err := c.Execute(context.Background(), ports.WorkerRequest{
		Instruction: "Plot monthly revenue",
		Context: []domain.Message{
			{Author: domain.AuthorUser, Content: "plot revenue"},
			{Author: string(domain.WorkerQuery), Content: `Results: {"rows":[{"month":"Jan","revenue":10}]}`},
			{Author: domain.AuthorExecutor, Content: `{"goto":"chart_generator"}`},
		},
	})
	require.NoError(t, err)

	want := filepath.Join(dir, "chart-fixed.svg")
	require.NotNil(t, res.Chart)
	assert.Equal(t, domain.ChartArtifact{Path: want, Notes: "February was the strongest month."}, *res.Chart)

	require.Len(t, res.Messages, 1)
	got, ok := domain.ExtractChart(res.Messages)
	require.True(t, ok)
	assert.Equal(t, *res.Chart, *got)

	svg, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(svg), "<svg"))
	assert.Contains(t, string(svg), "Revenue 2024")
	for _, label := range []string{"Jan", "Feb", "Mar"} {
		assert.Contains(t, string(svg), label)
	}

	prompt := model.lastPrompt()
	assert.Contains(t, prompt, "Plot monthly revenue")
	assert.Contains(t, prompt, "[text2sql_agent] Results:")
	assert.NotContains(t, prompt, "[executor]")
}

func TestChart_RejectsBadSpec(t *testing.T) {
	tests := map[string]string{
		"ragged series":     `{"type":"bar","labels":["a","b"],"series":[{"name":"s","values":[1]}]}`,
		"unknown type":      `{"type":"radar","labels":["a"],"series":[{"name":"s","values":[1]}]}`,
		"no labels":         `{"type":"line","labels":[],"series":[{"name":"s","values":[]}]}`,
		"single point line": `{"type":"line","labels":["a"],"series":[{"name":"s","values":[1]}]}`,
		"grouped bars":      `{"type":"bar","labels":["a"],"series":[{"name":"s","values":[1]},{"name":"t","values":[2]}]}`,
		"negative slice":    `{"type":"pie","labels":["a","b"],"series":[{"name":"s","values":[3,-1]}]}`,
		"not json":          `a chart of revenue`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := NewChart(newFakeModel(reply), dir).Execute(context.Background(), ports.WorkerRequest{})
			require.Error(t, err)

			entries, _ := os.ReadDir(dir)
			assert.Empty(t, entries, "nothing is written for a rejected spec")
		})
	}
}

func TestRenderSVG(t *testing.T) {
	tests := map[string]struct {
		spec ChartSpec
		want []string
	}{
		"line": {
			spec: ChartSpec{
				Type:   "line",
				Title:  "Signups",
				XLabel: "Day",
				Labels: []string{"Mon", "Tue", "Wed"},
				Series: []ChartSeries{
					{Name: "web", Values: []float64{1, 3, 2}},
					{Name: "mobile", Values: []float64{-1, 0, 4}},
				},
			},
			want: []string{"Signups", "Mon", "web", "mobile"},
		},
		"flat line": {
			spec: ChartSpec{
				Type:   "line",
				Title:  "Steady",
				Labels: []string{"Q1", "Q2"},
				Series: []ChartSeries{{Name: "plan", Values: []float64{5, 5}}},
			},
			want: []string{"Steady", "Q2"},
		},
		"zero bars": {
			spec: ChartSpec{
				Type:   "bar",
				Title:  "Refunds",
				Labels: []string{"Jan", "Feb"},
				Series: []ChartSeries{{Name: "refunds", Values: []float64{0, 0}}},
			},
			want: []string{"Refunds", "Feb"},
		},
		"pie": {
			spec: ChartSpec{
				Type:   "pie",
				Title:  "Share",
				Labels: []string{"EU", "US", "APAC"},
				Series: []ChartSeries{{Name: "share", Values: []float64{40, 35, 25}}},
			},
			want: []string{"EU", "US", "APAC"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tt.spec.Validate())
			out, err := RenderSVG(tt.spec)
			require.NoError(t, err)

			svg := string(out)
			assert.True(t, strings.HasPrefix(svg, "<svg"))
			assert.Contains(t, svg, "</svg>")
			for _, w := range tt.want {
				assert.Contains(t, svg, w)
			}
		})
	}
}

func TestChart_ExecutePie(t *testing.T) {
	dir := t.TempDir()
	reply := `{"type":"pie","title":"Revenue by region","labels":["EU","US"],"series":[{"name":"revenue","values":[60,40]}],"notes":"EU leads."}`
	c := NewChart(newFakeModel(reply), dir)

	res, err := c.Execute(context.Background(), ports.WorkerRequest{Instruction: "share of revenue by region"})
	require.NoError(t, err)
	require.NotNil(t, res.Chart)
	assert.FileExists(t, res.Chart.Path)
	assert.Contains(t, res.Messages[0].Content, "Rendered pie chart")
}
