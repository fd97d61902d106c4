package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/prism/internal/ops"
)

var (
	ErrUnknownStage   = errors.New("unknown stage")
	ErrDuplicateStage = errors.New("stage listed more than once")
	ErrMissingOp      = errors.New("step has no op")
)

// Step is one entry of a plan: an operation with its parameters.
//
// In JSON and YAML a step is a flat object whose "op" key names the stage
// and whose other keys are the stage parameters:
//
//	{"op": "split", "column": "name", "delimiter": " ", "parts": 2}
type Step struct {
	Op       ops.Operation
	Disabled bool
}

// Key returns the stage key of the step.
func (s Step) Key() string { return s.Op.Name() }

type stepHead struct {
	Op      string `json:"op" yaml:"op"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func newStep(head stepHead) (Step, error) {
	if head.Op == "" {
		return Step{}, ErrMissingOp
	}
	def, ok := Lookup(head.Op)
	if !ok {
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownStage, head.Op)
	}
	return Step{Op: def.New(), Disabled: head.Enabled != nil && !*head.Enabled}, nil
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var head stepHead
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	step, err := newStep(head)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, step.Op); err != nil {
		return fmt.Errorf("%s: %w", head.Op, err)
	}
	*s = step
	return nil
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var head stepHead
	if err := node.Decode(&head); err != nil {
		return err
	}
	step, err := newStep(head)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	if err := node.Decode(step.Op); err != nil {
		return fmt.Errorf("line %d: %s: %w", node.Line, head.Op, err)
	}
	*s = step
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	params, err := json.Marshal(s.Op)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(params, &out); err != nil {
		return nil, err
	}
	out["op"] = s.Op.Name()
	if s.Disabled {
		out["enabled"] = false
	}
	return json.Marshal(out)
}

// Plan is the set of stages a run applies. Stages always run in catalog
// order, whatever order the plan lists them in.
type Plan struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Validate checks that every stage appears at most once.
func (p Plan) Validate() error {
	seen := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		if s.Op == nil {
			return ErrMissingOp
		}
		if seen[s.Key()] {
			return fmt.Errorf("%w: %q", ErrDuplicateStage, s.Key())
		}
		seen[s.Key()] = true
	}
	return nil
}

// Ordered returns the enabled steps in catalog order.
func (p Plan) Ordered() []Step {
	out := make([]Step, 0, len(p.Steps))
	for _, s := range p.Steps {
		if !s.Disabled && s.Op != nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return order(out[i].Key()) < order(out[j].Key())
	})
	return out
}

func order(key string) int {
	def, ok := Lookup(key)
	if !ok {
		return int(^uint(0) >> 1)
	}
	return def.Order
}

// MarshalYAML writes the same flat shape that UnmarshalYAML reads.
func (s Step) MarshalYAML() (interface{}, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
