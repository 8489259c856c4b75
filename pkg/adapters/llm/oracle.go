package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/conductor/pkg/adapters/openai"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/aretw0/conductor/pkg/schema"
)

// Oracle is a ports.DecisionOracle backed by a chat model.
type Oracle struct {
	model  Completer
	logger *slog.Logger
}

// NewOracle creates a decision oracle over model.
func NewOracle(model Completer, opts ...Option) *Oracle {
	o := buildOptions(opts)
	return &Oracle{model: model, logger: o.logger}
}

var _ ports.DecisionOracle = (*Oracle)(nil)

type decisionPromptData struct {
	ports.DecisionRequest
	Targets []domain.Target
}

// Decide asks the model to judge the current step.
func (o *Oracle) Decide(ctx context.Context, req ports.DecisionRequest) (ports.Decision, error) {
	targets := make([]domain.Target, 0, len(req.EnabledAgents)+1)
	for _, w := range req.EnabledAgents {
		targets = append(targets, domain.WorkerTarget(w))
	}
	targets = append(targets, domain.TargetPlanner)

	prompt, err := render(decisionPrompt, decisionPromptData{DecisionRequest: req, Targets: targets})
	if err != nil {
		return ports.Decision{}, err
	}

	reply, err := o.model.Chat(ctx, openai.ChatRequest{
		Messages: []openai.Message{{Role: "user", Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		return ports.Decision{}, fmt.Errorf("decision completion: %w", err)
	}

	d, err := ParseDecision(reply)
	if err != nil {
		o.logger.Warn("rejected decision reply", "err", err, "step", req.Step)
		return ports.Decision{Raw: reply}, err
	}
	return d, nil
}

type wireDecision struct {
	Replan bool   `json:"replan"`
	Goto   string `json:"goto"`
	Reason string `json:"reason"`
	Query  string `json:"query"`
}

// ParseDecision extracts, validates and decodes a decision payload.
func ParseDecision(reply string) (ports.Decision, error) {
	raw, err := ExtractObject(reply)
	if err != nil {
		return ports.Decision{}, err
	}
	if err := schema.ValidateDecision([]byte(raw)); err != nil {
		return ports.Decision{Raw: raw}, err
	}

	var w wireDecision
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return ports.Decision{Raw: raw}, fmt.Errorf("decode decision: %w", err)
	}
	return ports.Decision{
		Replan: w.Replan,
		Goto:   domain.Target(w.Goto),
		Reason: w.Reason,
		Query:  w.Query,
		Raw:    raw,
	}, nil
}
