package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTypeNotFound         = errors.New("flow: type not found in catalog")
	ErrUnknownConstructor   = errors.New("flow: constructor not defined for type")
	ErrNotInPackageList     = errors.New("flow: node type is not in the package list")
	ErrTypeParametersUnset  = errors.New("flow: not all type parameters are set")
	ErrInvalidPayload       = errors.New("flow: payload is not valid JSON")
	ErrUnresolvedEndpoint   = errors.New("flow: connection endpoint unresolved")
	ErrConnectionRejected   = errors.New("flow: connection rejected, port types differ")
	ErrNodeNotFound         = errors.New("flow: node not found")
	ErrPortNotFound         = errors.New("flow: port not found")
	ErrDuplicateLabel       = errors.New("flow: node label already in use")
	ErrUnknownTypeParameter = errors.New("flow: unknown type parameter")
	ErrIncompatibleBinding  = errors.New("flow: type is not a candidate for this parameter")
	ErrInvalidProject       = errors.New("flow: invalid project document")
)

// NodeError attributes an error to the node with the given label.
type NodeError struct {
	Label string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("flow: node %q: %s", e.Label, strings.TrimPrefix(e.Err.Error(), "flow: "))
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
