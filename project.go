package flow

import (
	"encoding/json"
	"maps"
	"slices"
)

// Project is the persisted description of a flow: its package dependencies
// and the node graph handed to the build backend.
type Project struct {
	Name     string       `json:"name" validate:"required"`
	Version  string       `json:"version" validate:"required"`
	Packages []PackageRef `json:"packages" validate:"dive"`
	Flow     Flow         `json:"flow"`
}

// PackageRef is a package dependency of a project.
// A package is resolved by version unless a local Path or a Git source is given;
// Path and Git are mutually exclusive and Branch only applies to Git.
type PackageRef struct {
	Name    string `json:"name" validate:"required"`
	Version string `json:"version" validate:"required"`
	Path    string `json:"path,omitempty" validate:"excluded_with=Git"`
	Git     string `json:"git,omitempty" validate:"omitempty,url"`
	Branch  string `json:"branch,omitempty" validate:"excluded_without=Git"`
}

// Flow is the graph section of a project.
type Flow struct {
	Nodes       map[string]NodeModel `json:"nodes" validate:"dive"`
	Connections []ConnectionModel    `json:"connections" validate:"dive"`
	Data        map[string]NodeData  `json:"data"`
}

// NodeModel is a node instance keyed by its label in Flow.Nodes.
type NodeModel struct {
	NodeType       string            `json:"node_type" validate:"required"`
	TypeParameters map[string]string `json:"type_parameters"`
	Constructor    string            `json:"constructor" validate:"required"`
}

// ConnectionModel wires an output port of one node to an input port of another.
type ConnectionModel struct {
	FromNode   string `json:"from_node" validate:"required"`
	FromOutput string `json:"from_output" validate:"required"`
	ToNode     string `json:"to_node" validate:"required"`
	ToInput    string `json:"to_input" validate:"required"`
}

// NodeData is the construction payload of a node, stored as {"value": ...}.
type NodeData struct {
	Value json.RawMessage `json:"value"`
}

// NewProject returns an empty project with initialized flow collections.
func NewProject(name, version string) *Project {
	return &Project{
		Name:     name,
		Version:  version,
		Packages: []PackageRef{},
		Flow: Flow{
			Nodes:       map[string]NodeModel{},
			Connections: []ConnectionModel{},
			Data:        map[string]NodeData{},
		},
	}
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := &Project{
		Name:     p.Name,
		Version:  p.Version,
		Packages: slices.Clone(p.Packages),
		Flow: Flow{
			Nodes:       make(map[string]NodeModel, len(p.Flow.Nodes)),
			Connections: slices.Clone(p.Flow.Connections),
			Data:        make(map[string]NodeData, len(p.Flow.Data)),
		},
	}
	if c.Packages == nil {
		c.Packages = []PackageRef{}
	}
	if c.Flow.Connections == nil {
		c.Flow.Connections = []ConnectionModel{}
	}
	for k, n := range p.Flow.Nodes {
		n.TypeParameters = maps.Clone(n.TypeParameters)
		c.Flow.Nodes[k] = n
	}
	for k, d := range p.Flow.Data {
		c.Flow.Data[k] = NodeData{Value: slices.Clone(d.Value)}
	}
	return c
}

// PackageNames returns the names of the packages the project depends on.
func (p *Project) PackageNames() []string {
	names := make([]string, 0, len(p.Packages))
	for _, pkg := range p.Packages {
		names = append(names, pkg.Name)
	}
	return names
}
