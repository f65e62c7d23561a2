package editor

import (
	"maps"
	"slices"
	"strings"

	"github.com/meikuraledutech/flow/catalog"
)

// ConstructorOption creates a node of a type through one constructor kind.
type ConstructorOption struct {
	Kind string
	// New builds an unbound node labeled after the type. The node is not added
	// to the graph.
	New func() (*Node, error)
}

// ConstructableType lists the ways a catalog type can be instantiated.
type ConstructableType struct {
	TypeName string
	Options  []ConstructorOption
}

// BaseLabel derives a node label from a fully qualified type name.
func BaseLabel(typeName string) string {
	return strings.ReplaceAll(typeName, catalog.Separator, "_")
}

// Constructables lists, in name order, every catalog type with at least one
// port together with one option per constructor kind. Bare marker
// constructors are skipped with a warning, and types left without options
// are omitted.
func (g *Graph) Constructables(cat *catalog.Catalog) []ConstructableType {
	var out []ConstructableType
	for _, typeName := range cat.Names() {
		def, _ := cat.Lookup(typeName)
		if !def.HasPorts() {
			continue
		}
		ct := ConstructableType{TypeName: typeName}
		for _, kind := range slices.Sorted(maps.Keys(def.Constructors)) {
			if ctor := def.Constructors[kind]; ctor.IsMarker() {
				g.logger.Warn("editor: skipping bare marker constructor",
					"type", typeName, "constructor", kind, "variant", ctor.Variant)
				continue
			}
			ct.Options = append(ct.Options, ConstructorOption{
				Kind: kind,
				New: func() (*Node, error) {
					label := g.NextLabel(BaseLabel(typeName))
					return NewNode(label, typeName, nil, kind, nil, cat, g.nodeOptions()...)
				},
			})
		}
		if len(ct.Options) > 0 {
			out = append(out, ct)
		}
	}
	return out
}

func (g *Graph) nodeOptions() []Option {
	return []Option{WithLogger(g.opts.logger), WithConstraintPolicy(g.opts.policy)}
}
