package catalog

import "github.com/aretw0/conductor/pkg/domain"

var defaultEntries = []Entry{
	{
		ID:           domain.WorkerQuery,
		Name:         "Query Agent",
		Capability:   "Translate a natural-language question into a read-only SQL query and run it against the application database.",
		UseWhen:      "the answer lives in the application database and can be expressed as a question over its tables",
		Limitations:  "Cannot reach external web data; only reads the configured database.",
		OutputFormat: "Query result rows as JSON, or a short error description.",
	},
	{
		ID:           domain.WorkerResearch,
		Name:         "Web Researcher",
		Capability:   "Search the public web and digest the top results with citations.",
		UseWhen:      "the request needs current or public information that is not in the database",
		Limitations:  "Only sees what the search backend returns; no private data.",
		OutputFormat: "A short findings digest followed by a list of source URLs.",
	},
	{
		ID:           domain.WorkerChart,
		Name:         "Chart Generator",
		Capability:   "Build a visualization from structured data gathered by earlier steps.",
		UseWhen:      "the user explicitly asks for a chart, graph, plot or other visualization",
		Limitations:  "Requires structured data from previous steps.",
		OutputFormat: "A chart file plus its location and a one-sentence insight.",
		Positions:    []Position{{Kind: PositionPrecedes, Worker: domain.WorkerCaption}},
	},
	{
		ID:           domain.WorkerCaption,
		Name:         "Chart Summarizer",
		Capability:   "Explain a rendered chart in at most three sentences.",
		UseWhen:      "a chart has just been generated",
		Limitations:  "Requires a chart produced by chart_generator.",
		OutputFormat: "A standalone written summary of the chart contents.",
		Positions: []Position{
			{Kind: PositionFollows, Worker: domain.WorkerChart},
			{Kind: PositionLast},
		},
	},
	{
		ID:           domain.WorkerSynthesizer,
		Name:         "Synthesizer",
		Capability:   "Write a concise prose answer from every finding gathered so far.",
		UseWhen:      "no visualization is requested and the findings must be combined into the final answer",
		Limitations:  "Requires findings from previous steps.",
		OutputFormat: "Plain text answer with key figures and citations when available.",
		Positions:    []Position{{Kind: PositionLast}},
	},
}

// Default returns the built-in catalog covering every known worker.
func Default() *Catalog {
	c, err := New(defaultEntries...)
	if err != nil {
		panic("catalog: invalid default entries: " + err.Error())
	}
	return c
}
