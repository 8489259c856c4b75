package catalog

import (
	"fmt"
	"slices"

	"github.com/aretw0/conductor/pkg/domain"
)

// ValidatePlan checks plan against the structural policy: steps numbered 1..n,
// every worker described by the catalog and enabled for the run, and every
// positional constraint of the catalog entries satisfied.
// All failures wrap domain.ErrInvalidPlan.
func (c *Catalog) ValidatePlan(plan domain.Plan, enabled []domain.WorkerID) error {
	n := len(plan)
	if n == 0 {
		return fmt.Errorf("%w: plan has no steps", domain.ErrInvalidPlan)
	}
	if !plan.Contiguous() {
		return fmt.Errorf("%w: steps must be numbered 1..%d", domain.ErrInvalidPlan, n)
	}

	for i := 1; i <= n; i++ {
		w := plan[i].Worker
		if !w.Valid() {
			return fmt.Errorf("%w: step %d: %w: %q", domain.ErrInvalidPlan, i, domain.ErrUnknownWorker, w)
		}
		entry, ok := c.entries[w]
		if !ok {
			return fmt.Errorf("%w: step %d: worker %s is not in the catalog", domain.ErrInvalidPlan, i, w)
		}
		if !slices.Contains(enabled, w) {
			return fmt.Errorf("%w: step %d: worker %s is not enabled", domain.ErrInvalidPlan, i, w)
		}
		for _, p := range entry.Positions {
			if !satisfied(plan, n, i, p) {
				return fmt.Errorf("%w: step %d: %s %s", domain.ErrInvalidPlan, i, w, p.Describe())
			}
		}
	}
	return nil
}

func satisfied(plan domain.Plan, n, i int, p Position) bool {
	switch p.Kind {
	case PositionLast:
		return i == n
	case PositionPrecedes:
		return i < n && plan[i+1].Worker == p.Worker
	case PositionFollows:
		return i > 1 && plan[i-1].Worker == p.Worker
	}
	return true
}
