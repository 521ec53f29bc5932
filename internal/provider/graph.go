package provider

import (
	"fmt"

	"github.com/RedHatInsights/sync-connector/internal/domain"
)

type UnknownResourceTypeError struct {
	ResourceType domain.ResourceType
}

func (e UnknownResourceTypeError) Error() string {
	return fmt.Sprintf("unknown resource type: %s", e.ResourceType)
}

// ResourceDefinition places one resource type in the dependency graph.  A
// definition with a ParentType is synced by walking the already stored
// parents instead of a flat top-level listing.
type ResourceDefinition struct {
	Type       domain.ResourceType
	ParentType domain.ResourceType
	Core       bool
}

func (d ResourceDefinition) IsDependent() bool {
	return d.ParentType != ""
}

// DependencyGraph is a hand-authored order over a provider's resource types.
// Types that are referenced by foreign keys come before the types that
// reference them.  The order is fixed at construction; nothing is resolved at
// runtime.
type DependencyGraph struct {
	definitions []ResourceDefinition
	index       map[domain.ResourceType]int
}

func NewDependencyGraph(definitions ...ResourceDefinition) (*DependencyGraph, error) {
	g := &DependencyGraph{
		definitions: definitions,
		index:       make(map[domain.ResourceType]int, len(definitions)),
	}

	if err := g.validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// MustDependencyGraph is for graphs declared as package level values
func MustDependencyGraph(definitions ...ResourceDefinition) *DependencyGraph {
	g, err := NewDependencyGraph(definitions...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *DependencyGraph) validate() error {
	for i, def := range g.definitions {
		if def.Type == "" {
			return fmt.Errorf("resource definition %d has no type", i)
		}

		if _, exists := g.index[def.Type]; exists {
			return fmt.Errorf("resource type %s is declared twice", def.Type)
		}

		if def.IsDependent() {
			if def.ParentType == def.Type {
				return fmt.Errorf("resource type %s cannot be its own parent", def.Type)
			}
			if _, parentSeen := g.index[def.ParentType]; !parentSeen {
				return fmt.Errorf("resource type %s must be declared after its parent %s", def.Type, def.ParentType)
			}
		}

		g.index[def.Type] = i
	}

	return nil
}

func (g *DependencyGraph) Definition(rt domain.ResourceType) (ResourceDefinition, bool) {
	i, ok := g.index[rt]
	if !ok {
		return ResourceDefinition{}, false
	}
	return g.definitions[i], true
}

func (g *DependencyGraph) All() []ResourceDefinition {
	out := make([]ResourceDefinition, len(g.definitions))
	copy(out, g.definitions)
	return out
}

func (g *DependencyGraph) Types() []domain.ResourceType {
	types := make([]domain.ResourceType, 0, len(g.definitions))
	for _, def := range g.definitions {
		types = append(types, def.Type)
	}
	return types
}

func (g *DependencyGraph) CoreTypes() []domain.ResourceType {
	types := make([]domain.ResourceType, 0)
	for _, def := range g.definitions {
		if def.Core {
			types = append(types, def.Type)
		}
	}
	return types
}

// Plan returns the requested definitions in graph order.  An empty request
// selects the core subset.
func (g *DependencyGraph) Plan(requested []domain.ResourceType) ([]ResourceDefinition, error) {
	if len(requested) == 0 {
		requested = g.CoreTypes()
	}

	wanted := make(map[domain.ResourceType]bool, len(requested))
	for _, rt := range requested {
		if _, ok := g.index[rt]; !ok {
			return nil, UnknownResourceTypeError{ResourceType: rt}
		}
		wanted[rt] = true
	}

	plan := make([]ResourceDefinition, 0, len(wanted))
	for _, def := range g.definitions {
		if wanted[def.Type] {
			plan = append(plan, def)
		}
	}

	return plan, nil
}
