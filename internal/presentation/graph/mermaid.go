package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/conductor/pkg/domain"
)

// Overlay contains run data to visualize on the plan.
type Overlay struct {
	// Visited lists the workers that produced at least one message.
	Visited []domain.WorkerID
	// Failed marks the graph as ending in an error.
	Failed bool
}

// OverlayOf derives an overlay from a transcript's message authors.
func OverlayOf(t *domain.Transcript) *Overlay {
	o := &Overlay{Failed: t.Error != ""}
	seen := make(map[domain.WorkerID]bool)
	for _, m := range t.Messages {
		id := domain.WorkerID(m.Author)
		if id.Valid() && !seen[id] {
			seen[id] = true
			o.Visited = append(o.Visited, id)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a plan. Steps are chained
// in index order below the planner, and every step reports back to the
// executor. Shapes:
// - Planner: ((Circle))
// - Worker: [[Subroutine]]
// - Terminal worker: ([Stadium])
// Steps that were replanned carry the attempt count. The overlay, when
// given, styles visited workers.
func GenerateMermaid(plan domain.Plan, attempts map[int]int, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    planner((\"planner\"))\n")
	sb.WriteString("    executor{\"executor\"}\n")
	sb.WriteString("    planner --> executor\n")

	steps := make([]int, 0, len(plan))
	for k := range plan {
		steps = append(steps, k)
	}
	sort.Ints(steps)

	prev := ""
	for _, k := range steps {
		spec := plan[k]
		id := stepID(k)

		opener, closer := "[[", "]]"
		if spec.Worker.Terminal() {
			opener, closer = "([", "])"
		}
		label := fmt.Sprintf("%d. %s", k, spec.Worker)
		if n := attempts[k]; n > 0 {
			label += fmt.Sprintf(" <br/> ↻ %d", n)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		fmt.Fprintf(&sb, "    executor -- \"%s\" --> %s\n", quote(spec.Action), id)
		if !spec.Worker.Terminal() {
			fmt.Fprintf(&sb, "    %s -.-> executor\n", id)
		}
		if prev != "" {
			fmt.Fprintf(&sb, "    %s ~~~ %s\n", prev, id)
		}
		prev = id
	}
	if len(attempts) > 0 {
		sb.WriteString("    executor -. \"replan\" .-> planner\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visited := make(map[domain.WorkerID]bool)
		for _, w := range overlay.Visited {
			visited[w] = true
		}
		for _, k := range steps {
			if visited[plan[k].Worker] {
				fmt.Fprintf(&sb, "    class %s visited;\n", stepID(k))
			}
		}
		if overlay.Failed {
			sb.WriteString("    class executor failed;\n")
		}
	}

	return sb.String()
}

func stepID(k int) string {
	return fmt.Sprintf("step_%d", k)
}

// quote makes an action safe for a Mermaid edge label.
func quote(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 40 {
		s = string(r[:37]) + "..."
	}
	return s
}
