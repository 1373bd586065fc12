package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/contractkit/deployer/deployments"
	"github.com/contractkit/deployer/pkg/logger"
)

// StepFunc performs the work of one deployment step.
type StepFunc func(ctx context.Context, o *Orchestrator) error

// Step is a named, tagged unit of deployment work.
type Step struct {
	ID   string
	Tags []string
	Run  StepFunc
}

// StepReport records the outcome of one step of a run.
type StepReport struct {
	ID      string
	Skipped bool
	Err     error
}

// Runner executes registered steps in registration order.
type Runner struct {
	orchestrator *Orchestrator
	steps        []Step
	ids          map[string]struct{}
	lggr         logger.Logger
}

// NewRunner returns a Runner that hands o to every step.
func NewRunner(o *Orchestrator, lggr logger.Logger) *Runner {
	if lggr == nil {
		lggr = logger.Nop()
	}

	return &Runner{
		orchestrator: o,
		ids:          make(map[string]struct{}),
		lggr:         lggr.Named("runner"),
	}
}

// Register adds steps to the runner. Step ids must be unique.
func (r *Runner) Register(steps ...Step) error {
	for _, s := range steps {
		if s.ID == "" {
			return errors.New("step id is required")
		}
		if s.Run == nil {
			return fmt.Errorf("step %q has no run function", s.ID)
		}
		if _, ok := r.ids[s.ID]; ok {
			return fmt.Errorf("step %q is already registered", s.ID)
		}
		r.ids[s.ID] = struct{}{}
		r.steps = append(r.steps, s)
	}

	return nil
}

// Steps returns the registered steps.
func (r *Runner) Steps() []Step {
	return append([]Step(nil), r.steps...)
}

// Run executes every step carrying at least one of tags, or every step when tags is empty. It stops
// at the first failing step.
func (r *Runner) Run(ctx context.Context, tags ...string) ([]StepReport, error) {
	reports := make([]StepReport, 0, len(r.steps))

	for _, s := range r.steps {
		if len(tags) > 0 && !deployments.NewLabelSet(s.Tags...).ContainsAny(tags...) {
			r.lggr.Debugw("Step not selected by tags", "step", s.ID, "tags", tags)
			reports = append(reports, StepReport{ID: s.ID, Skipped: true})

			continue
		}

		if err := ctx.Err(); err != nil {
			return reports, err
		}

		r.lggr.Infow("Running step", "step", s.ID, "run", r.orchestrator.RunID())
		if err := s.Run(ctx, r.orchestrator); err != nil {
			reports = append(reports, StepReport{ID: s.ID, Err: err})

			return reports, fmt.Errorf("step %q failed: %w", s.ID, err)
		}
		reports = append(reports, StepReport{ID: s.ID})
	}

	return reports, nil
}
