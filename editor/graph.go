package editor

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flow"
)

// Connection wires an output of the Source node to an input of the Target
// node. Source and Target are node IDs.
type Connection struct {
	ID           string
	Source       string
	SourceOutput string
	Target       string
	TargetInput  string
}

// Graph is the set of live nodes and connections of an editing session.
// It is not safe for concurrent use.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	labels    map[string]string

	conns     map[string]*Connection
	connOrder []string

	counters map[string]int
	opts     options
	logger   *slog.Logger
}

// NewGraph returns an empty graph.
func NewGraph(opts ...Option) *Graph {
	o := newOptions(opts)
	return &Graph{
		nodes:    map[string]*Node{},
		labels:   map[string]string{},
		conns:    map[string]*Connection{},
		counters: map[string]int{},
		opts:     o,
		logger:   o.logger,
	}
}

// NextLabel returns a label for a new node derived from base. The first use of
// a base yields base itself, later ones base1, base2, ...; labels already in
// the graph are skipped.
func (g *Graph) NextLabel(base string) string {
	for {
		count := g.counters[base]
		g.counters[base] = count + 1
		label := base
		if count > 0 {
			label = base + strconv.Itoa(count)
		}
		if _, taken := g.labels[label]; !taken {
			return label
		}
	}
}

// AddNode adds n to the graph. Labels are unique within a graph.
func (g *Graph) AddNode(n *Node) error {
	if _, taken := g.labels[n.Label]; taken {
		return fmt.Errorf("%w: %s", flow.ErrDuplicateLabel, n.Label)
	}
	if _, taken := g.nodes[n.ID]; taken {
		return fmt.Errorf("editor: node id %s already in graph", n.ID)
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.labels[n.Label] = n.ID
	n.graph = g
	return nil
}

// RemoveNode removes the node with the given label and every connection
// attached to it.
func (g *Graph) RemoveNode(label string) error {
	id, ok := g.labels[label]
	if !ok {
		return fmt.Errorf("%w: %s", flow.ErrNodeNotFound, label)
	}
	g.disconnect(id)
	n := g.nodes[id]
	n.graph = nil
	delete(g.nodes, id)
	delete(g.labels, label)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(v string) bool { return v == id })
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByLabel returns the node with the given label.
func (g *Graph) NodeByLabel(label string) (*Node, bool) {
	id, ok := g.labels[label]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Connections returns copies of the connections in insertion order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, 0, len(g.connOrder))
	for _, id := range g.connOrder {
		out = append(out, *g.conns[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// ConnectionCount returns the number of connections.
func (g *Graph) ConnectionCount() int {
	return len(g.conns)
}

// AddConnection connects output out of src to input in of dst. The connection
// is rejected with flow.ErrConnectionRejected, and the graph left unchanged,
// unless both ports resolve to the same type name.
func (g *Graph) AddConnection(src *Node, out string, dst *Node, in string) (*Connection, error) {
	if err := g.owns(src, dst); err != nil {
		return nil, err
	}
	srcType, ok := src.ResolvedType(Output, out)
	if !ok {
		return nil, fmt.Errorf("%w: output %s on %s", flow.ErrPortNotFound, out, src.Label)
	}
	dstType, ok := dst.ResolvedType(Input, in)
	if !ok {
		return nil, fmt.Errorf("%w: input %s on %s", flow.ErrPortNotFound, in, dst.Label)
	}
	if srcType != dstType {
		g.logger.Warn("editor: port types differ, connection rejected",
			"source", src.Label, "output", out, "output_type", srcType,
			"target", dst.Label, "input", in, "input_type", dstType)
		return nil, fmt.Errorf("%w: %s.%s (%s) -> %s.%s (%s)",
			flow.ErrConnectionRejected, src.Label, out, srcType, dst.Label, in, dstType)
	}
	return g.connect(src, out, dst, in), nil
}

// Restore adds a stored connection without checking ports or types. It is
// used when materializing a saved project, which is wired as it was saved.
func (g *Graph) Restore(src *Node, out string, dst *Node, in string) (*Connection, error) {
	if err := g.owns(src, dst); err != nil {
		return nil, err
	}
	return g.connect(src, out, dst, in), nil
}

// RemoveConnection removes a connection by ID.
func (g *Graph) RemoveConnection(id string) error {
	if _, ok := g.conns[id]; !ok {
		return fmt.Errorf("editor: connection %s not found", id)
	}
	delete(g.conns, id)
	g.connOrder = slices.DeleteFunc(g.connOrder, func(v string) bool { return v == id })
	return nil
}

func (g *Graph) owns(nodes ...*Node) error {
	for _, n := range nodes {
		if n == nil || g.nodes[n.ID] != n {
			label := "<nil>"
			if n != nil {
				label = n.Label
			}
			return fmt.Errorf("%w: %s is not in the graph", flow.ErrNodeNotFound, label)
		}
	}
	return nil
}

func (g *Graph) connect(src *Node, out string, dst *Node, in string) *Connection {
	c := &Connection{
		ID:           uuid.NewString(),
		Source:       src.ID,
		SourceOutput: out,
		Target:       dst.ID,
		TargetInput:  in,
	}
	g.conns[c.ID] = c
	g.connOrder = append(g.connOrder, c.ID)
	cp := *c
	return &cp
}

// disconnect removes every connection attached to the node and returns how
// many were removed.
func (g *Graph) disconnect(nodeID string) int {
	before := len(g.connOrder)
	g.connOrder = slices.DeleteFunc(g.connOrder, func(id string) bool {
		c := g.conns[id]
		if c.Source == nodeID || c.Target == nodeID {
			delete(g.conns, id)
			return true
		}
		return false
	})
	return before - len(g.connOrder)
}
