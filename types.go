package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// JSONConstructor is the constructor kind whose arguments are built from a
// node's JSON payload.
const JSONConstructor = "Json"

// Package is a unit of node types served by the backend.
type Package struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Crates  map[string]Module `json:"crates"`
}

// Module is one level of the namespace tree: a crate root or a nested module.
type Module struct {
	Types   map[string]TypeDefinition `json:"types"`
	Modules map[string]Module         `json:"modules"`
}

// TypeDefinition describes a node type: its ports, generic parameters and the
// ways it can be constructed.
type TypeDefinition struct {
	Inputs         map[string]Port        `json:"inputs"`
	Outputs        map[string]Port        `json:"outputs"`
	TypeParameters []string               `json:"type_parameters"`
	Constructors   map[string]Constructor `json:"constructors"`
}

// IsGeneric reports whether the type declares generic parameters.
func (t *TypeDefinition) IsGeneric() bool {
	return len(t.TypeParameters) > 0
}

// HasPorts reports whether the type has at least one input or output.
func (t *TypeDefinition) HasPorts() bool {
	return len(t.Inputs)+len(t.Outputs) > 0
}

// InputNames returns the input port names in sorted order.
func (t *TypeDefinition) InputNames() []string {
	return slices.Sorted(maps.Keys(t.Inputs))
}

// OutputNames returns the output port names in sorted order.
func (t *TypeDefinition) OutputNames() []string {
	return slices.Sorted(maps.Keys(t.Outputs))
}

// Port is an input or output of a type.
type Port struct {
	Type TypeDescription `json:"type"`
}

// TypeKind discriminates TypeDescription.
type TypeKind uint8

const (
	TypeConcrete TypeKind = iota + 1
	TypeGeneric
)

func (k TypeKind) String() string {
	switch k {
	case TypeConcrete:
		return "Type"
	case TypeGeneric:
		return "Generic"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// TypeDescription is either a concrete type name or a reference to one of the
// enclosing type's generic parameters. Both may carry type arguments.
type TypeDescription struct {
	Kind           TypeKind
	Name           string
	TypeParameters []TypeDescription
}

// Concrete returns a concrete type description.
func Concrete(name string, params ...TypeDescription) TypeDescription {
	return TypeDescription{Kind: TypeConcrete, Name: name, TypeParameters: params}
}

// Generic returns a reference to a generic parameter.
func Generic(name string, params ...TypeDescription) TypeDescription {
	return TypeDescription{Kind: TypeGeneric, Name: name, TypeParameters: params}
}

// String renders the description as Name<Arg,...>.
func (d TypeDescription) String() string {
	return d.Render(func(td TypeDescription) string { return td.Name })
}

// Render renders the description, naming each level with name.
func (d TypeDescription) Render(name func(TypeDescription) string) string {
	if len(d.TypeParameters) == 0 {
		return name(d)
	}
	args := make([]string, len(d.TypeParameters))
	for i, p := range d.TypeParameters {
		args[i] = p.Render(name)
	}
	return name(d) + "<" + strings.Join(args, ",") + ">"
}

type typeDescriptionBody struct {
	Name           string            `json:"name"`
	TypeParameters []TypeDescription `json:"type_parameters"`
}

func (d TypeDescription) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case TypeConcrete, TypeGeneric:
	default:
		return nil, fmt.Errorf("flow: cannot encode type description with kind %s", d.Kind)
	}
	return json.Marshal(map[string]typeDescriptionBody{
		d.Kind.String(): {Name: d.Name, TypeParameters: d.TypeParameters},
	})
}

func (d *TypeDescription) UnmarshalJSON(data []byte) error {
	var tagged map[string]typeDescriptionBody
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("flow: type description: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("flow: type description must have exactly one of Type or Generic, got %d keys", len(tagged))
	}
	for tag, body := range tagged {
		switch tag {
		case "Type":
			d.Kind = TypeConcrete
		case "Generic":
			d.Kind = TypeGeneric
		default:
			return fmt.Errorf("flow: unknown type description variant %q", tag)
		}
		d.Name = body.Name
		d.TypeParameters = body.TypeParameters
	}
	return nil
}

// ConstructorVariant names the construction strategy of a constructor.
type ConstructorVariant string

const (
	CtorNew                       ConstructorVariant = "New"
	CtorNewWithObserver           ConstructorVariant = "NewWithObserver"
	CtorNewWithObserverAndContext ConstructorVariant = "NewWithObserverAndContext"
	CtorNewWithArbitraryArgs      ConstructorVariant = "NewWithArbitraryArgs"
	CtorFromJSON                  ConstructorVariant = "FromJson"
	CtorFromDefault               ConstructorVariant = "FromDefault"
	CtorFromCode                  ConstructorVariant = "FromCode"
)

// IsMarker reports whether the variant carries no description and is encoded
// as a bare string.
func (v ConstructorVariant) IsMarker() bool {
	return v == CtorFromJSON || v == CtorFromDefault
}

func (v ConstructorVariant) known() bool {
	switch v {
	case CtorNew, CtorNewWithObserver, CtorNewWithObserverAndContext,
		CtorNewWithArbitraryArgs, CtorFromJSON, CtorFromDefault, CtorFromCode:
		return true
	}
	return false
}

// Constructor describes one way of instantiating a type.
type Constructor struct {
	Variant      ConstructorVariant
	FunctionName string
	Arguments    []Argument
	CodeTemplate string
}

// IsMarker reports whether c is a bare marker without a structured description.
func (c Constructor) IsMarker() bool {
	return c.Variant.IsMarker()
}

// TakesJSONPayload reports whether any argument is built by the Json constructor.
func (c Constructor) TakesJSONPayload() bool {
	for _, arg := range c.Arguments {
		if kind, ok := arg.Construction.ConstructorKind(); ok && kind == JSONConstructor {
			return true
		}
	}
	return false
}

type constructorBody struct {
	FunctionName *string    `json:"function_name"`
	Arguments    []Argument `json:"arguments"`
	CodeTemplate *string    `json:"code_template"`
}

func (c Constructor) MarshalJSON() ([]byte, error) {
	if !c.Variant.known() {
		return nil, fmt.Errorf("flow: cannot encode constructor variant %q", c.Variant)
	}
	if c.IsMarker() {
		return json.Marshal(string(c.Variant))
	}
	body := map[string]any{}
	if c.Variant == CtorFromCode {
		body["code_template"] = c.CodeTemplate
	} else {
		// function_name is optional on the backend and encoded as null when unset.
		body["function_name"] = nil
		if c.FunctionName != "" {
			body["function_name"] = c.FunctionName
		}
		if c.Variant == CtorNewWithArbitraryArgs || len(c.Arguments) > 0 {
			args := c.Arguments
			if args == nil {
				args = []Argument{}
			}
			body["arguments"] = args
		}
	}
	return json.Marshal(map[string]any{string(c.Variant): body})
}

func (c *Constructor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var marker string
		if err := json.Unmarshal(data, &marker); err != nil {
			return fmt.Errorf("flow: constructor: %w", err)
		}
		v := ConstructorVariant(marker)
		if !v.IsMarker() {
			return fmt.Errorf("flow: constructor %q cannot be a bare string", marker)
		}
		*c = Constructor{Variant: v}
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("flow: constructor: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("flow: constructor must have exactly one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		v := ConstructorVariant(tag)
		if !v.known() {
			return fmt.Errorf("flow: unknown constructor variant %q", tag)
		}
		var body constructorBody
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &body); err != nil {
				return fmt.Errorf("flow: constructor %s: %w", tag, err)
			}
		}
		*c = Constructor{Variant: v, Arguments: body.Arguments}
		if body.FunctionName != nil {
			c.FunctionName = *body.FunctionName
		}
		if body.CodeTemplate != nil {
			c.CodeTemplate = *body.CodeTemplate
		}
	}
	return nil
}

// ArgumentPassing is how a constructed argument is handed to a constructor.
type ArgumentPassing string

const (
	PassMove             ArgumentPassing = "Move"
	PassClone            ArgumentPassing = "Clone"
	PassReference        ArgumentPassing = "Reference"
	PassMutableReference ArgumentPassing = "MutableReference"
)

func (p *ArgumentPassing) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flow: argument passing: %w", err)
	}
	switch v := ArgumentPassing(s); v {
	case PassMove, PassClone, PassReference, PassMutableReference:
		*p = v
		return nil
	default:
		return fmt.Errorf("flow: unknown argument passing %q", s)
	}
}

// Argument is a constructor argument.
type Argument struct {
	Type         TypeDescription      `json:"type"`
	Name         string               `json:"name"`
	Passing      ArgumentPassing      `json:"passing"`
	Construction ArgumentConstruction `json:"construction"`
}

// ConstructionKind discriminates ArgumentConstruction.
type ConstructionKind uint8

const (
	ConstructByConstructor ConstructionKind = iota + 1
	ReuseExistingObject
)

// ArgumentConstruction says where an argument value comes from: a named
// constructor kind invoked on the argument's type, or an existing object.
type ArgumentConstruction struct {
	Kind        ConstructionKind
	Constructor string
	Existing    json.RawMessage
}

// ByConstructor returns a construction through the given constructor kind.
func ByConstructor(kind string) ArgumentConstruction {
	return ArgumentConstruction{Kind: ConstructByConstructor, Constructor: kind}
}

// ExistingObject returns a construction that reuses an existing object.
func ExistingObject() ArgumentConstruction {
	return ArgumentConstruction{Kind: ReuseExistingObject}
}

// ConstructorKind returns the constructor kind when the argument is built by one.
func (a ArgumentConstruction) ConstructorKind() (string, bool) {
	if a.Kind != ConstructByConstructor {
		return "", false
	}
	return a.Constructor, true
}

func (a ArgumentConstruction) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case ConstructByConstructor:
		return json.Marshal(map[string]string{"Constructor": a.Constructor})
	case ReuseExistingObject:
		existing := a.Existing
		if len(existing) == 0 {
			existing = json.RawMessage("[]")
		}
		return json.Marshal(map[string]json.RawMessage{"ExistingObject": existing})
	default:
		return nil, fmt.Errorf("flow: cannot encode argument construction kind %d", a.Kind)
	}
}

func (a *ArgumentConstruction) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("flow: argument construction: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("flow: argument construction must have exactly one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "Constructor":
			var kind string
			if err := json.Unmarshal(raw, &kind); err != nil {
				return fmt.Errorf("flow: argument construction: %w", err)
			}
			*a = ByConstructor(kind)
		case "ExistingObject":
			*a = ArgumentConstruction{Kind: ReuseExistingObject, Existing: slices.Clone(raw)}
		default:
			return fmt.Errorf("flow: unknown argument construction %q", tag)
		}
	}
	return nil
}
