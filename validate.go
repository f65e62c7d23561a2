package flow

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the document on its own: required fields, package source
// exclusivity, and that connections and data only refer to declared nodes.
// It does not consult a type catalog.
func (p *Project) Validate() error {
	var errs []error
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%w: %s fails %q", ErrInvalidProject, fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidProject, err))
		}
	}

	for i, c := range p.Flow.Connections {
		if _, ok := p.Flow.Nodes[c.FromNode]; !ok {
			errs = append(errs, fmt.Errorf("%w: connection %d source %q", ErrUnresolvedEndpoint, i, c.FromNode))
		}
		if _, ok := p.Flow.Nodes[c.ToNode]; !ok {
			errs = append(errs, fmt.Errorf("%w: connection %d target %q", ErrUnresolvedEndpoint, i, c.ToNode))
		}
	}
	for _, label := range slices.Sorted(maps.Keys(p.Flow.Data)) {
		if _, ok := p.Flow.Nodes[label]; !ok {
			errs = append(errs, &NodeError{Label: label, Err: fmt.Errorf("%w: data without node", ErrNodeNotFound)})
		}
	}
	return errors.Join(errs...)
}
