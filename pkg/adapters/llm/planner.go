package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/adapters/openai"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/schema"
)

// Planner is a ports.PlanGenerator backed by a chat model.
type Planner struct {
	model  Completer
	logger *slog.Logger
}

// Option configures the Planner and the Oracle.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPlanner creates a plan generator over model.
func NewPlanner(model Completer, opts ...Option) *Planner {
	o := buildOptions(opts)
	return &Planner{model: model, logger: o.logger}
}

var _ ports.PlanGenerator = (*Planner)(nil)

type planPromptData struct {
	Goal        string
	Workers     []catalog.Entry
	Replan      bool
	PriorPlan   string
	PriorReason string
}

// Generate asks the model for a plan. The reply is returned as Raw even when
// it is rejected, so callers can report what the model said.
func (p *Planner) Generate(ctx context.Context, req ports.PlanRequest) (ports.PlanResponse, error) {
	data := planPromptData{
		Goal:        req.Goal,
		Workers:     req.Catalog,
		Replan:      req.Replan,
		PriorReason: req.PriorReason,
	}
	if req.Replan {
		prior, err := json.MarshalIndent(req.PriorPlan, "", "  ")
		if err != nil {
			return ports.PlanResponse{}, fmt.Errorf("encode prior plan: %w", err)
		}
		data.PriorPlan = string(prior)
	}
	prompt, err := render(planPrompt, data)
	if err != nil {
		return ports.PlanResponse{}, err
	}

	reply, err := p.model.Chat(ctx, openai.ChatRequest{
		Messages: []openai.Message{{Role: "user", Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		return ports.PlanResponse{}, fmt.Errorf("plan completion: %w", err)
	}

	plan, raw, err := ParsePlan(reply)
	if err != nil {
		p.logger.Warn("rejected plan reply", "err", err, "replan", req.Replan)
		return ports.PlanResponse{Raw: reply}, err
	}
	p.logger.Debug("plan generated", "steps", len(plan), "replan", req.Replan)
	return ports.PlanResponse{Plan: plan, Raw: raw}, nil
}

// ParsePlan extracts, validates and decodes a plan payload.
// The returned raw string is the extracted JSON object.
func ParsePlan(reply string) (domain.Plan, string, error) {
	raw, err := ExtractObject(reply)
	if err != nil {
		return nil, "", err
	}
	if err := schema.ValidatePlan([]byte(raw)); err != nil {
		return nil, raw, err
	}

	var wire map[string]domain.StepSpec
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, raw, fmt.Errorf("decode plan: %w", err)
	}
	plan := make(domain.Plan, len(wire))
	for k, spec := range wire {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, raw, fmt.Errorf("decode plan: step %q: %w", k, err)
		}
		plan[i] = spec
	}
	return plan, raw, nil
}
