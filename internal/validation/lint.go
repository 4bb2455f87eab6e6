package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/drawio-mcp/internal/expressions"
	"github.com/rendis/drawio-mcp/pkg/schema"
)

// Lint codes. Lint findings are warnings; a flowchart with warnings is
// still laid out.
const (
	LintDuplicateID       = "DUPLICATE_STEP_ID"
	LintDanglingSuccessor = "DANGLING_SUCCESSOR"
	LintSelfReference     = "SELF_REFERENCE"
	LintUnlabeledBranch   = "UNLABELED_BRANCH"
	LintSingleBranch      = "SINGLE_BRANCH_DECISION"
	LintEndWithSuccessors = "END_WITH_SUCCESSORS"
	LintCycle             = "CYCLE"
)

type lintRule struct {
	code    string
	expr    string
	message func(step schema.FlowchartStep, ids map[string]bool) string
}

var stepRules = []lintRule{
	{
		code: LintSelfReference,
		expr: `step.id in step.next`,
		message: func(s schema.FlowchartStep, _ map[string]bool) string {
			return fmt.Sprintf("step %q lists itself as a successor", s.ID)
		},
	},
	{
		code: LintDanglingSuccessor,
		expr: `step.next.exists(n, !(n in ids))`,
		message: func(s schema.FlowchartStep, ids map[string]bool) string {
			var unknown []string
			for _, n := range s.Next {
				if !ids[n] {
					unknown = append(unknown, n)
				}
			}
			return fmt.Sprintf("step %q points at unknown steps: %s", s.ID, strings.Join(unknown, ", "))
		},
	},
	{
		code: LintUnlabeledBranch,
		expr: `step.type == "decision" && size(step.next) > 1 && size(step.labels) < size(step.next)`,
		message: func(s schema.FlowchartStep, _ map[string]bool) string {
			return fmt.Sprintf("decision %q has %d branches but %d labels", s.ID, len(s.Next), len(s.DecisionLabels))
		},
	},
	{
		code: LintSingleBranch,
		expr: `step.type == "decision" && size(step.next) < 2`,
		message: func(s schema.FlowchartStep, _ map[string]bool) string {
			return fmt.Sprintf("decision %q has fewer than two branches", s.ID)
		},
	},
	{
		code: LintEndWithSuccessors,
		expr: `step.type == "end" && size(step.next) > 0`,
		message: func(s schema.FlowchartStep, _ map[string]bool) string {
			return fmt.Sprintf("end step %q has successors", s.ID)
		},
	},
}

// Linter reports questionable but tolerated flowchart input.
type Linter struct {
	cel *expressions.CELEngine
}

// NewLinter compiles the step rules.
func NewLinter() (*Linter, error) {
	engine, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	for _, rule := range stepRules {
		if err := engine.Compile(rule.expr); err != nil {
			return nil, fmt.Errorf("lint rule %s: %w", rule.code, err)
		}
	}
	return &Linter{cel: engine}, nil
}

// Lint returns warnings for steps. It never reports errors.
func (l *Linter) Lint(ctx context.Context, steps []schema.FlowchartStep) (*schema.ValidationResult, error) {
	result := &schema.ValidationResult{}

	ids := make(map[string]bool, len(steps))
	idList := make([]string, 0, len(steps))
	for i, step := range steps {
		if ids[step.ID] {
			result.AddWarning(fmt.Sprintf("steps[%d].id", i), LintDuplicateID,
				fmt.Sprintf("step id %q is used more than once; the last one wins", step.ID))
			continue
		}
		ids[step.ID] = true
		idList = append(idList, step.ID)
	}

	for i, step := range steps {
		data := map[string]any{
			"step": map[string]any{
				"id":     step.ID,
				"type":   string(step.Type),
				"text":   step.Text,
				"next":   nonNil(step.Next),
				"labels": nonNil(step.DecisionLabels),
			},
			"ids":   idList,
			"index": int64(i),
		}
		for _, rule := range stepRules {
			hit, err := expressions.Bool(ctx, l.cel, rule.expr, data)
			if err != nil {
				return nil, fmt.Errorf("lint rule %s on step %q: %w", rule.code, step.ID, err)
			}
			if hit {
				result.AddWarning(fmt.Sprintf("steps[%d]", i), rule.code, rule.message(step, ids))
			}
		}
	}

	if cycle := findCycle(steps); len(cycle) > 0 {
		result.AddWarning("steps", LintCycle, "steps form a cycle: "+strings.Join(cycle, " -> "))
	}
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
