package codec

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
)

// Check validates a document against a catalog: the structural checks of
// flow.Project.Validate, then that every node type exists and defines the
// chosen constructor, every generic parameter is bound, and every connection
// names existing ports. All problems are reported together.
func Check(doc *flow.Project, cat *catalog.Catalog) error {
	var errs []error
	if err := doc.Validate(); err != nil {
		errs = append(errs, err)
	}

	for _, label := range slices.Sorted(maps.Keys(doc.Flow.Nodes)) {
		model := doc.Flow.Nodes[label]
		def, ok := cat.Lookup(model.NodeType)
		if !ok {
			errs = append(errs, &flow.NodeError{Label: label, Err: fmt.Errorf("%w: %s", flow.ErrTypeNotFound, model.NodeType)})
			continue
		}
		if _, ok := def.Constructors[model.Constructor]; !ok {
			errs = append(errs, &flow.NodeError{Label: label, Err: fmt.Errorf("%w: %s has no %q", flow.ErrUnknownConstructor, model.NodeType, model.Constructor)})
		}
		for _, param := range def.TypeParameters {
			if _, ok := model.TypeParameters[param]; !ok {
				errs = append(errs, &flow.NodeError{Label: label, Err: fmt.Errorf("%w: %s", flow.ErrTypeParametersUnset, param)})
			}
		}
	}

	for i, c := range doc.Flow.Connections {
		if err := checkPort(doc, cat, c.FromNode, c.FromOutput, true); err != nil {
			errs = append(errs, fmt.Errorf("connection %d: %w", i, err))
		}
		if err := checkPort(doc, cat, c.ToNode, c.ToInput, false); err != nil {
			errs = append(errs, fmt.Errorf("connection %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func checkPort(doc *flow.Project, cat *catalog.Catalog, label, port string, output bool) error {
	model, ok := doc.Flow.Nodes[label]
	if !ok {
		// reported by Validate
		return nil
	}
	def, ok := cat.Lookup(model.NodeType)
	if !ok {
		return nil
	}
	ports, dir := def.Inputs, "input"
	if output {
		ports, dir = def.Outputs, "output"
	}
	if _, ok := ports[port]; !ok {
		return &flow.NodeError{Label: label, Err: fmt.Errorf("%w: %s %s", flow.ErrPortNotFound, dir, port)}
	}
	return nil
}
