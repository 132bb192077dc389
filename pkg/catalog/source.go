package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source defines how plans are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[PlanID]Plan, error)
}

// inMemSource serves a fixed plan map, deep-copied on load.
type inMemSource struct {
	plans map[PlanID]Plan
}

// NewInMemSource returns a Source serving the given plans.
func NewInMemSource(plans map[PlanID]Plan) Source {
	copied := make(map[PlanID]Plan, len(plans))
	for id, plan := range plans {
		copied[id] = plan.clone()
	}
	return &inMemSource{plans: copied}
}

func (s *inMemSource) Load(ctx context.Context) (map[PlanID]Plan, error) {
	out := make(map[PlanID]Plan, len(s.plans))
	for id, plan := range s.plans {
		out[id] = plan.clone()
	}
	return out, nil
}

// fileSource loads plans from a YAML file, allowing catalog changes without
// a rebuild. The file is a list of plan documents.
type fileSource struct {
	path string
}

// NewFileSource returns a Source reading plans from a YAML file.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(ctx context.Context) (map[PlanID]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog %s: %w", s.path, err)
	}
	return ParseYAML(raw)
}

// ParseYAML decodes a YAML plan list into a plan map.
func ParseYAML(raw []byte) (map[PlanID]Plan, error) {
	var plans []Plan
	if err := yaml.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}

	out := make(map[PlanID]Plan, len(plans))
	for _, plan := range plans {
		if _, exists := out[plan.ID]; exists {
			return nil, fmt.Errorf("duplicate plan %q in catalog file", plan.ID)
		}
		out[plan.ID] = plan
	}
	return out, nil
}
