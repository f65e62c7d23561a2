// Package editor holds the editable flow graph: nodes instantiated from
// catalog types, their generic bindings and ports, and the type-checked
// connections between them.
package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
)

// Direction tells inputs from outputs.
type Direction uint8

const (
	Input Direction = iota + 1
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Port is an input or output of a node with its declared type.
type Port struct {
	Name      string
	Direction Direction
	Declared  flow.TypeDescription
}

type options struct {
	logger *slog.Logger
	policy catalog.ConstraintPolicy
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default(), policy: catalog.ConstraintLastWins}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures nodes and graphs.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConstraintPolicy sets how multiple constraints on one generic parameter combine.
func WithConstraintPolicy(p catalog.ConstraintPolicy) Option {
	return func(o *options) { o.policy = p }
}

// Node is a live instance of a catalog type.
type Node struct {
	ID          string
	Label       string
	TypeName    string
	Constructor string

	def        *flow.TypeDefinition
	ctor       *flow.Constructor
	payload    string
	hasPayload bool
	bindings   map[string]string
	candidates map[string][]string
	inputs     []Port
	outputs    []Port

	graph  *Graph
	logger *slog.Logger
}

// NewNode instantiates typeName with the given constructor kind. payload is the
// stored construction value (nil or JSON null for none) and bindings the
// initial generic parameter choices. It fails with flow.ErrTypeNotFound when
// the type is not in the catalog; a constructor kind the type does not define
// is tolerated and leaves the node without constructor controls.
func NewNode(label, typeName string, payload json.RawMessage, constructorKind string, bindings map[string]string, cat *catalog.Catalog, opts ...Option) (*Node, error) {
	o := newOptions(opts)

	def, ok := cat.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrTypeNotFound, typeName)
	}

	n := &Node{
		ID:          uuid.NewString(),
		Label:       label,
		TypeName:    typeName,
		Constructor: constructorKind,
		def:         def,
		bindings:    map[string]string{},
		candidates:  map[string][]string{},
		logger:      o.logger,
	}

	switch ctor, ok := def.Constructors[constructorKind]; {
	case !ok:
		o.logger.Warn("editor: constructor not defined for type", "type", typeName, "constructor", constructorKind)
	case ctor.IsMarker():
		o.logger.Warn("editor: constructor is a bare marker", "type", typeName, "constructor", constructorKind, "variant", ctor.Variant)
	default:
		n.ctor = &ctor
	}

	n.seedPayload(payload)
	for k, v := range bindings {
		n.bindings[k] = v
	}

	constrained := catalog.CompatibleTypes(n.ctor, cat, o.policy)
	for _, param := range def.TypeParameters {
		if cands, ok := constrained[param]; ok {
			n.candidates[param] = cands
		} else {
			n.candidates[param] = cat.Names()
		}
	}

	for _, name := range def.InputNames() {
		n.inputs = append(n.inputs, Port{Name: name, Direction: Input, Declared: def.Inputs[name].Type})
	}
	for _, name := range def.OutputNames() {
		n.outputs = append(n.outputs, Port{Name: name, Direction: Output, Declared: def.Outputs[name].Type})
	}
	return n, nil
}

func (n *Node) seedPayload(payload json.RawMessage) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		n.payload = string(trimmed)
	} else {
		n.payload = buf.String()
	}
	n.hasPayload = true
}

// Definition returns the catalog definition the node was built from.
func (n *Node) Definition() *flow.TypeDefinition {
	return n.def
}

// ConstructorDescription returns the resolved constructor, or nil when the
// kind is undefined or a bare marker.
func (n *Node) ConstructorDescription() *flow.Constructor {
	return n.ctor
}

// AcceptsPayload reports whether the chosen constructor builds an argument
// from the node's JSON payload.
func (n *Node) AcceptsPayload() bool {
	return n.ctor != nil && n.ctor.TakesJSONPayload()
}

// Payload returns the editable payload text.
func (n *Node) Payload() (string, bool) {
	return n.payload, n.hasPayload
}

// SetPayload replaces the payload text. It is only parsed on serialization.
func (n *Node) SetPayload(text string) {
	n.payload = text
	n.hasPayload = strings.TrimSpace(text) != ""
}

// ClearPayload removes the payload.
func (n *Node) ClearPayload() {
	n.payload, n.hasPayload = "", false
}

// TypeParameters returns the generic parameters declared by the node's type.
func (n *Node) TypeParameters() []string {
	return slices.Clone(n.def.TypeParameters)
}

// Binding returns the type bound to a generic parameter.
func (n *Node) Binding(param string) (string, bool) {
	t, ok := n.bindings[param]
	return t, ok
}

// Bindings returns a copy of all generic bindings.
func (n *Node) Bindings() map[string]string {
	return maps.Clone(n.bindings)
}

// Candidates returns the types a generic parameter may be bound to.
func (n *Node) Candidates(param string) []string {
	return slices.Clone(n.candidates[param])
}

// Complete reports whether every declared generic parameter is bound.
func (n *Node) Complete() bool {
	for _, p := range n.def.TypeParameters {
		if _, ok := n.bindings[p]; !ok {
			return false
		}
	}
	return true
}

// SetBinding binds a generic parameter to one of its candidates. Connections
// attached to the node are removed, since its port types may have changed.
func (n *Node) SetBinding(param, typeName string) error {
	cands, ok := n.candidates[param]
	if !ok {
		return fmt.Errorf("%w: %s on %s", flow.ErrUnknownTypeParameter, param, n.Label)
	}
	if !slices.Contains(cands, typeName) {
		return fmt.Errorf("%w: %s for %s on %s", flow.ErrIncompatibleBinding, typeName, param, n.Label)
	}
	n.bindings[param] = typeName
	if n.graph != nil {
		if removed := n.graph.disconnect(n.ID); removed > 0 {
			n.logger.Debug("editor: binding changed, connections removed",
				"node", n.Label, "param", param, "type", typeName, "removed", removed)
		}
	}
	return nil
}

// Inputs returns the input ports in name order.
func (n *Node) Inputs() []Port {
	return slices.Clone(n.inputs)
}

// Outputs returns the output ports in name order.
func (n *Node) Outputs() []Port {
	return slices.Clone(n.outputs)
}

func (n *Node) port(dir Direction, name string) (Port, bool) {
	ports := n.inputs
	if dir == Output {
		ports = n.outputs
	}
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// ResolvedType returns the type of a port after substituting generic
// parameters through the current bindings. Unbound parameters keep their name.
func (n *Node) ResolvedType(dir Direction, name string) (string, bool) {
	p, ok := n.port(dir, name)
	if !ok {
		return "", false
	}
	return n.resolve(p.Declared), true
}

func (n *Node) resolve(d flow.TypeDescription) string {
	return d.Render(func(td flow.TypeDescription) string {
		if td.Kind == flow.TypeGeneric {
			if bound, ok := n.bindings[td.Name]; ok {
				return bound
			}
		}
		return td.Name
	})
}

// PortLabel returns the display label of a port, "name:type".
func (n *Node) PortLabel(p Port) string {
	return p.Name + ":" + n.resolve(p.Declared)
}
