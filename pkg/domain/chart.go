package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Labeled lines a chart worker appends to its final message.
const (
	ChartPathMarker  = "CHART_PATH:"
	ChartNotesMarker = "CHART_NOTES:"
)

// NoResponse is shown when a run produced nothing to display.
const NoResponse = "No response available."

// FormatChartMarkers renders the two trailing marker lines for a chart message.
func FormatChartMarkers(c ChartArtifact) string {
	return fmt.Sprintf("%s %s\n%s %s", ChartPathMarker, c.Path, ChartNotesMarker, oneLine(c.Notes))
}

// ExtractChart scans messages newest first and returns the artifact described
// by the first message carrying a path marker.
func ExtractChart(messages []Message) (*ChartArtifact, bool) {
	for _, m := range slices.Backward(messages) {
		if !strings.Contains(m.Content, ChartPathMarker) {
			continue
		}
		var c ChartArtifact
		for _, line := range strings.Split(m.Content, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, ChartPathMarker):
				c.Path = strings.TrimSpace(strings.TrimPrefix(line, ChartPathMarker))
			case strings.HasPrefix(line, ChartNotesMarker):
				c.Notes = strings.TrimSpace(strings.TrimPrefix(line, ChartNotesMarker))
			}
		}
		if c.Path == "" {
			return nil, false
		}
		return &c, true
	}
	return nil, false
}

// ChartOf prefers the typed artifact and falls back to the message markers.
func ChartOf(s *State) (*ChartArtifact, bool) {
	if s.Chart != nil {
		c := *s.Chart
		return &c, true
	}
	return ExtractChart(s.Messages)
}

// PickFinalAnswer returns the text to display for a run: the final answer,
// else the latest terminal worker message, else the latest message.
func PickFinalAnswer(s *State) string {
	if s == nil {
		return NoResponse
	}
	if s.Finished {
		return s.FinalAnswer
	}
	for _, m := range slices.Backward(s.Messages) {
		if WorkerID(m.Author).Terminal() {
			return m.Content
		}
	}
	if n := len(s.Messages); n > 0 {
		return s.Messages[n-1].Content
	}
	return NoResponse
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
